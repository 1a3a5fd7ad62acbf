package utils

// Value dereferences v, returning the zero value for nil.
func Value[T any](v *T) T {
	var zero T
	return ValueOr(v, zero)
}

// ValueOr returns *v, or fallback when v is nil
func ValueOr[T any](v *T, fallback T) T {
	if v == nil {
		return fallback
	}
	return *v
}

// Ptr returns a pointer to a copy of v, for optional wire fields.
func Ptr[T any](v T) *T {
	return &v
}
