package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"financial_underwriting/pkg/core/agent"
	"financial_underwriting/pkg/core/apperr"
	"financial_underwriting/pkg/core/config"
	"financial_underwriting/pkg/core/consumer"
	"financial_underwriting/pkg/core/dispatch"
	"financial_underwriting/pkg/core/extract"
	"financial_underwriting/pkg/core/gst"
	"financial_underwriting/pkg/core/gstr3b"
	"financial_underwriting/pkg/core/ingest"
	"financial_underwriting/pkg/core/llm"
	"financial_underwriting/pkg/core/logging"
	"financial_underwriting/pkg/core/metrics"
	"financial_underwriting/pkg/core/pipeline"
	"financial_underwriting/pkg/core/prompt"
	"financial_underwriting/pkg/core/reconcile"
	"financial_underwriting/pkg/core/stage"
	"financial_underwriting/pkg/core/store"
	"financial_underwriting/pkg/core/summary"
	"financial_underwriting/pkg/models"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

func main() {
	useKafka := flag.Bool("kafka", false, "consume task envelopes from Kafka")
	payloadPath := flag.String("payload", "", "run one task envelope from a JSON file")
	dryRun := flag.Bool("dry-run", false, "keep records in memory instead of Postgres")
	flag.Parse()

	cfg := config.Load()
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if !*useKafka && *payloadPath == "" {
		fmt.Fprintln(os.Stderr, "usage: worker -kafka | -payload task.json [-dry-run]")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, *useKafka, *payloadPath, *dryRun); err != nil {
		log.Error("worker: exiting", zap.String("error", eris.ToString(err, true)))
		os.Exit(1)
	}
}

type worker struct {
	dispatcher *dispatch.Dispatcher
	memory     *store.MemoryStore
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger, useKafka bool, payloadPath string, dryRun bool) error {
	var st pipeline.Store
	var memory *store.MemoryStore
	if dryRun {
		memory = store.NewMemoryStore()
		st = memory
		log.Info("worker: dry run, records kept in memory")
	} else {
		pool, err := store.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		pg := store.NewPostgresStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			return err
		}
		st = pg
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return eris.Wrap(err, "worker: create genai client")
	}

	w, err := build(cfg, log, client, st)
	if err != nil {
		return err
	}
	w.memory = memory

	if payloadPath != "" {
		return w.runPayload(ctx, payloadPath, log)
	}
	if !useKafka {
		return nil
	}

	source, err := consumer.NewKafkaSource(consumer.KafkaConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaTopic,
		GroupID:  cfg.KafkaGroupID,
		ClientID: cfg.KafkaClientID,
	})
	if err != nil {
		return err
	}
	log.Info("worker: consuming",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("topic", cfg.KafkaTopic),
		zap.String("group", cfg.KafkaGroupID),
		zap.Strings("task_types", w.dispatcher.Types()),
	)
	return consumer.New(source, w.dispatcher, consumer.Options{
		Attempts: cfg.TaskAttempts,
		Logger:   log,
	}).Run(ctx)
}

func build(cfg *config.Config, log *zap.Logger, client *genai.Client, st pipeline.Store) (*worker, error) {
	routing, err := config.LoadAgentRouting(cfg.ModelsConfigPath)
	if err != nil {
		return nil, err
	}
	prompts, err := prompt.Load(cfg.PromptsFile)
	if err != nil {
		return nil, err
	}
	log.Info("worker: prompt library loaded", zap.Int("prompts", prompts.Count()))

	gemini := llm.NewGeminiProvider(client, cfg.GeminiModel, cfg.GeminiTemperature)
	providers := map[string]llm.Provider{"gemini": gemini}
	if cfg.DeepSeekAPIKey != "" {
		providers["deepseek"] = llm.NewDeepSeekProvider(cfg.DeepSeekAPIKey)
	}
	agents := agent.NewManager(routing, providers, log)

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.ExtractionRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.ExtractionRPS), 1)
	}
	extractor := extract.NewOrchestrator(
		ingest.NewHTTPFetcher(cfg.FetchTimeout),
		stage.NewGeminiFileStager(client),
		gemini,
		prompts,
		extract.Options{
			Attempts:       cfg.DocumentAttempts,
			StagingTimeout: cfg.StagingTimeout,
			Limiter:        limiter,
			Logger:         log,
		},
	)

	financial := pipeline.NewFinancial(
		extractor,
		reconcile.New(reconcile.WithBackfillPolicy(reconcile.PolicyFor(cfg.BackfillPolicy))),
		metrics.New(metrics.ParseISCFormula(cfg.ISCFormula)),
		summary.NewWriter(agents, prompts, log),
		st,
		pipeline.Options{Concurrency: cfg.ExtractionConcurrency, Logger: log},
	)

	gstClient := gst.NewClient(gst.ClientConfig{
		BaseURL:    cfg.AllMightBaseURL,
		AuthKey:    cfg.BizconAuthKey,
		SourceName: cfg.SourceName,
		Timeout:    cfg.FetchTimeout,
	}, log)
	profiles := gst.NewProfileFinder(cfg.BingSearchURL, cfg.FetchTimeout)

	d := dispatch.New(log).
		Register(models.TaskFinancialSummary, dispatch.Financial(financial)).
		Register(models.TaskGSTSummary, dispatch.Pipeline(gst.NewPipeline(gstClient, profiles, agents, prompts, st, log))).
		Register(models.TaskGSTR3BSummary, dispatch.Pipeline(gstr3b.NewPipeline(agents, prompts, st, log)))

	return &worker{dispatcher: d}, nil
}

func (w *worker) runPayload(ctx context.Context, path string, log *zap.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "worker: read %s", path)
	}
	task, err := consumer.Decode(data)
	if err != nil {
		return eris.Wrapf(err, "worker: decode %s", path)
	}
	if w.memory != nil && task.ApplicationID != "" {
		if err := w.memory.SeedApplication(task.ApplicationID, nil); err != nil {
			return err
		}
	}

	log.Info("worker: running payload", zap.String("task_type", string(task.Type)), zap.String("application_id", task.ApplicationID))
	text, err := w.dispatcher.DispatchTask(ctx, task)
	if w.memory != nil {
		log.Info("worker: dry run finished", zap.Int("records", w.memory.Len()))
	}
	if err != nil {
		fmt.Println(apperr.Text(err))
		return err
	}
	fmt.Println(text)
	return nil
}
