package registry

// Result carries a value together with how fresh it is. A degraded result
// holds cached data that was served because the registry could not be
// reached; Cause records why.
type Result[T any] struct {
	Value T
	Cause error
}

// Ok wraps a value fetched from the registry or from a fresh cache entry.
func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Degraded wraps stale data served after cause prevented a refresh.
func Degraded[T any](v T, cause error) Result[T] {
	return Result[T]{Value: v, Cause: cause}
}

// IsDegraded reports whether the value is stale.
func (r Result[T]) IsDegraded() bool {
	return r.Cause != nil
}
