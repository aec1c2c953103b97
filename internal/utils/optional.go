package utils

// Optional distinguishes "not provided" from "provided", including provided zero
// values. A pointer-typed Optional set to nil means "explicitly cleared".
type Optional[T any] struct {
	value T
	set   bool
}

// Set returns a present Optional holding v.
func Set[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// IsSet reports whether a value was provided.
func (o Optional[T]) IsSet() bool {
	return o.set
}

// Get returns the value and whether it was provided.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

// ValueOr returns the value when provided, otherwise fallback.
func (o Optional[T]) ValueOr(fallback T) T {
	if o.set {
		return o.value
	}
	return fallback
}

// ApplyTo writes the value into dst when provided.
func (o Optional[T]) ApplyTo(dst *T) {
	if o.set {
		*dst = o.value
	}
}
