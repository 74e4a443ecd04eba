package catalog

import "fmt"

// Kind classifies a failed query.
type Kind string

// Failure kinds surfaced to presentation code.
const (
	KindNetwork       Kind = "network_error"
	KindMalformedDate Kind = "malformed_date"
	KindInvalidInput  Kind = "invalid_input"
	// KindStorage is reported by collaborators that keep state next to the
	// catalog, such as favorites. The catalog itself never produces it.
	KindStorage Kind = "storage_error"
)

// Failure describes why a query produced no value.
type Failure struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Outcome is the result of a single repository query: either a value or a
// Failure, never both.
type Outcome[T any] struct {
	value   T
	failure *Failure
}

// Success wraps a value.
func Success[T any](v T) Outcome[T] {
	return Outcome[T]{value: v}
}

// Fail builds a failed outcome.
func Fail[T any](kind Kind, message string) Outcome[T] {
	return Outcome[T]{failure: &Failure{Kind: kind, Message: message}}
}

// OK reports whether the outcome is a success.
func (o Outcome[T]) OK() bool { return o.failure == nil }

// Value returns the wrapped value and whether the query succeeded.
func (o Outcome[T]) Value() (T, bool) {
	return o.value, o.failure == nil
}

// Failure returns the failure, or nil on success.
func (o Outcome[T]) Failure() *Failure { return o.failure }

// Result converts the outcome into Go's usual (value, error) pair.
func (o Outcome[T]) Result() (T, error) {
	if o.failure != nil {
		var zero T
		return zero, o.failure
	}
	return o.value, nil
}
