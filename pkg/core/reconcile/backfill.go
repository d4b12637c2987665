package reconcile

import "strings"

// Gap describes a rollup whose reported total disagrees with its terms.
type Gap struct {
	Total    string
	Reported float64
	Computed float64
	// Missing are the terms that were absent (not dashed) in the source.
	Missing []Term
}

// BackfillPolicy decides whether an unexplained subtotal gap may be
// attributed to absent terms. It returns the values to assign, keyed by
// path; an empty result leaves the absent terms at zero.
type BackfillPolicy interface {
	Name() string
	Backfill(g Gap) map[string]float64
}

// NeverInfer leaves absent terms at zero.
type NeverInfer struct{}

func (NeverInfer) Name() string { return "never" }
func (NeverInfer) Backfill(Gap) map[string]float64 { return nil }

// InferSingleMissing attributes the whole gap to the only absent term,
// provided the inferred value is positive.
type InferSingleMissing struct{}

func (InferSingleMissing) Name() string { return "single-missing" }

func (InferSingleMissing) Backfill(g Gap) map[string]float64 {
	if len(g.Missing) != 1 {
		return nil
	}
	t := g.Missing[0]
	v := (g.Reported - g.Computed) / t.Sign
	if v <= 0 {
		return nil
	}
	return map[string]float64{t.Path: v}
}

// PolicyFor maps a configuration value to a policy; unknown names fall
// back to NeverInfer.
func PolicyFor(name string) BackfillPolicy {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "single-missing", "single_missing", "infer":
		return InferSingleMissing{}
	}
	return NeverInfer{}
}
