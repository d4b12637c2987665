// Package config loads process configuration from the environment (with an
// optional .env file) and the agent routing table from config/models.yaml.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v2"
)

type Config struct {
	DatabaseURL string

	GeminiAPIKey      string
	GeminiModel       string
	GeminiTemperature float32
	DeepSeekAPIKey    string

	KafkaBrokers  []string
	KafkaTopic    string
	KafkaGroupID  string
	KafkaClientID string

	AllMightBaseURL string
	BizconAuthKey   string
	SourceName      string
	BingSearchURL   string

	LogLevel string

	FetchTimeout          time.Duration
	StagingTimeout        time.Duration
	ExtractionConcurrency int
	ExtractionRPS         float64
	DocumentAttempts      int
	TaskAttempts          int

	// ISCFormula selects the interest-service coverage formula:
	// "documented" (interest / gross profit) or "standard".
	ISCFormula     string
	BackfillPolicy string

	ModelsConfigPath string
	PromptsFile      string
}

// Load reads a .env file when present, then the environment.
func Load() *Config {
	// A missing .env file is normal in deployed environments.
	_ = godotenv.Load()

	return &Config{
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.5-pro"),
		GeminiTemperature: float32(getEnvAsFloat("GEMINI_TEMPERATURE", 0.2)),
		DeepSeekAPIKey:    getEnv("DEEPSEEK_API_KEY", ""),

		KafkaBrokers:  splitList(getEnv("KAFKA_BOOTSTRAP_SERVERS", "")),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "underwriting-requests"),
		KafkaGroupID:  getEnv("KAFKA_GROUP_ID", "underwriting"),
		KafkaClientID: getEnv("KAFKA_CLIENT_ID", "underwriting-worker"),

		AllMightBaseURL: strings.TrimRight(getEnv("ALL_MIGHT_BASE_URL", ""), "/"),
		BizconAuthKey:   getEnv("BIZCON_AUTH_KEY", ""),
		SourceName:      getEnv("SOURCE_NAME", "underwriting-agent"),
		BingSearchURL:   getEnv("BING_SEARCH", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		FetchTimeout:          getEnvAsDuration("FETCH_TIMEOUT", 60*time.Second),
		StagingTimeout:        getEnvAsDuration("STAGING_TIMEOUT", 120*time.Second),
		ExtractionConcurrency: getEnvAsInt("EXTRACTION_CONCURRENCY", 4),
		ExtractionRPS:         getEnvAsFloat("EXTRACTION_RPS", 2),
		DocumentAttempts:      getEnvAsInt("DOCUMENT_ATTEMPTS", 2),
		TaskAttempts:          getEnvAsInt("TASK_ATTEMPTS", 3),

		ISCFormula:     strings.ToLower(getEnv("ISC_FORMULA", "documented")),
		BackfillPolicy: strings.ToLower(getEnv("BACKFILL_POLICY", "never")),

		ModelsConfigPath: getEnv("MODELS_CONFIG", "config/models.yaml"),
		PromptsFile:      getEnv("PROMPTS_FILE", ""),
	}
}

// AgentRouting is the parsed config/models.yaml.
type AgentRouting struct {
	ActiveProvider string                  `yaml:"active_provider"`
	Agents         map[string]AgentRouteCfg `yaml:"agents"`
}

type AgentRouteCfg struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	Description string `yaml:"description"`
}

// LoadAgentRouting reads the agent routing table. A missing file yields an
// empty table routed to gemini.
func LoadAgentRouting(path string) (AgentRouting, error) {
	routing := AgentRouting{ActiveProvider: "gemini"}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return routing, nil
		}
		return routing, eris.Wrapf(err, "config: read %s", path)
	}
	if err := yaml.Unmarshal(data, &routing); err != nil {
		return routing, eris.Wrapf(err, "config: parse %s", path)
	}
	if routing.ActiveProvider == "" {
		routing.ActiveProvider = "gemini"
	}
	return routing, nil
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil && v > 0 {
		return v
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil && v >= 0 {
		return v
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	// Bare integers are seconds.
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
