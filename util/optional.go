package util

//*******************************************
// optional
//*******************************************

type Optional[T any] struct {
	Value    T
	hasValue bool
}

func Some[T any](value T) Optional[T] {
	return Optional[T]{Value: value, hasValue: true}
}

func None[T any]() Optional[T] {
	return Optional[T]{}
}

func (self Optional[T]) HasValue() bool {
	return self.hasValue
}
