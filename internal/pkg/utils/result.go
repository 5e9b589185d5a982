package utils

// Result is the outcome of one best-effort item fetch: a value, nothing, or an error.
type Result[T any] struct {
	Value T
	OK    bool
	Err   error
}

// Ok wraps a present value.
func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v, OK: true}
}

// Empty is a successful fetch that produced nothing (zero balance, no price, ...).
func Empty[T any]() Result[T] {
	return Result[T]{}
}

// Fail records an item failure.
func Fail[T any](err error) Result[T] {
	return Result[T]{Err: err}
}

// CollectOK keeps the present values in order and hands every failure to onErr.
// onErr may be nil.
func CollectOK[T any](results []Result[T], onErr func(index int, err error)) []T {
	out := make([]T, 0, len(results))
	for i, r := range results {
		if r.Err != nil {
			if onErr != nil {
				onErr(i, r.Err)
			}
			continue
		}
		if r.OK {
			out = append(out, r.Value)
		}
	}
	return out
}
