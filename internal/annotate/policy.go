package annotate

import "fmt"

// FailurePolicy decides what happens when a remote lookup fails.
type FailurePolicy string

const (
	// PolicySkip logs the failure and leaves the lookup's columns out of the row.
	PolicySkip FailurePolicy = "skip"
	// PolicyFail aborts the run.
	PolicyFail FailurePolicy = "fail"
)

// ParseFailurePolicy parses "skip" or "fail".
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch p := FailurePolicy(s); p {
	case PolicySkip, PolicyFail:
		return p, nil
	}
	return "", fmt.Errorf("unknown failure policy %q (want %s or %s)", s, PolicySkip, PolicyFail)
}

// Options configures record processing.
type Options struct {
	Delimiter          string        // joins list values
	SplitFields        []string      // multi-valued fields expanded into indexed columns
	GeneFailure        FailurePolicy // gene overlap lookup errors
	ConsequenceFailure FailurePolicy // consequence lookup errors
}

// DefaultOptions returns the default options: gene overlap failures are
// skipped, consequence failures abort.
func DefaultOptions() Options {
	return Options{
		Delimiter:          ";",
		GeneFailure:        PolicySkip,
		ConsequenceFailure: PolicyFail,
	}
}
