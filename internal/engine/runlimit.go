package engine

// DefaultRunLimit is the default maximum number of combinations per run.
// This prevents runaway sweeps from consuming unbounded resources.
const DefaultRunLimit = 1_000_000

// RunLimiter counts recorded combinations and enforces the run limit.
//
// Each run has its own RunLimiter. The limit is checked once per
// combination, before the combination is stored, so at most limit
// combinations ever reach the sink. It is a cooperative check, not a
// preemptive interrupt.
type RunLimiter struct {
	limit   int // Maximum combinations for this run
	current int // Combinations checked so far
}

// NewRunLimiter creates a limiter with the given ceiling.
// A non-positive limit uses DefaultRunLimit.
func NewRunLimiter(limit int) *RunLimiter {
	if limit <= 0 {
		limit = DefaultRunLimit
	}
	return &RunLimiter{limit: limit}
}

// Check increments the counter and validates against the limit.
//
// Returns RunLimitExceededError if the combination may not be recorded.
func (l *RunLimiter) Check() error {
	l.current++
	if l.current > l.limit {
		return &RunLimitExceededError{
			Limit:        l.limit,
			Combinations: l.current,
		}
	}
	return nil
}

// Current returns the number of checks performed.
func (l *RunLimiter) Current() int {
	return l.current
}

// Limit returns the ceiling.
func (l *RunLimiter) Limit() int {
	return l.limit
}
