package retriever

import "time"

// OracleFailurePolicy selects how the search loop reacts when a sufficiency
// call fails outright (as opposed to answering "insufficient").
type OracleFailurePolicy string

const (
	// OracleFailureContinue treats a failed sufficiency call as an
	// insufficient verdict and moves on to the next depth.
	OracleFailureContinue OracleFailurePolicy = "continue"
	// OracleFailureAbort stops the search and surfaces the failure as a
	// RetrievalUnavailableError.
	OracleFailureAbort OracleFailurePolicy = "abort"
)

// Config bounds one retrieval call. The zero value is not usable directly;
// construct through DefaultConfig or let sanitized fill the gaps.
type Config struct {
	// MaxDepth is the hop budget. Depth zero still runs one
	// search/prune/reason round over the seed paths, so a call makes at
	// most MaxDepth+1 rounds.
	MaxDepth int
	// TopN is the beam width kept after each prune and the target seed
	// count. Must be at least 1.
	TopN int
	// CallTimeout bounds each embedding, index, and reasoning round-trip.
	// Zero disables the per-call timeout.
	CallTimeout time.Duration
	// Synthesize controls whether the final answer is composed by the
	// reasoning client. When false the answer is the newline-joined
	// triple strings.
	Synthesize bool
	// OracleFailure selects the reaction to sufficiency call failures.
	// Empty means OracleFailureContinue.
	OracleFailure OracleFailurePolicy
}

// DefaultConfig returns the bounds used when the caller specifies none.
func DefaultConfig() Config {
	return Config{
		MaxDepth:      3,
		TopN:          3,
		CallTimeout:   60 * time.Second,
		Synthesize:    true,
		OracleFailure: OracleFailureContinue,
	}
}

// sanitized clamps out-of-range values instead of failing the call: a
// negative depth becomes zero and a beam below one becomes one.
func (c Config) sanitized() Config {
	if c.MaxDepth < 0 {
		c.MaxDepth = 0
	}
	if c.TopN < 1 {
		c.TopN = 1
	}
	if c.OracleFailure == "" {
		c.OracleFailure = OracleFailureContinue
	}
	return c
}
