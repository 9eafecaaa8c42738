package util

//*******************************************
// flags
//*******************************************

// Flags is a reusable per-node state array.
//
// Only touched entries are reset, so a solver can be reused across many
// queries on large graphs without reallocating.
type Flags[T any] struct {
	flags   []T
	touched []bool
	changed List[int32]
	_null   T
}

func NewFlags[T any](size int32, null_flag T) Flags[T] {
	flags := make([]T, size)
	for i := 0; i < len(flags); i++ {
		flags[i] = null_flag
	}
	return Flags[T]{
		flags:   flags,
		touched: make([]bool, size),
		changed: NewList[int32](100),
		_null:   null_flag,
	}
}

func (self *Flags[T]) Get(id int32) *T {
	if !self.touched[id] {
		self.touched[id] = true
		self.changed.Add(id)
	}
	return &self.flags[id]
}
func (self *Flags[T]) IsTouched(id int32) bool {
	return self.touched[id]
}

// Iterates over all entries accessed since the last reset.
func (self *Flags[T]) ForTouched(callback func(id int32, flag *T)) {
	for _, id := range self.changed {
		callback(id, &self.flags[id])
	}
}
func (self *Flags[T]) Reset() {
	for _, id := range self.changed {
		self.flags[id] = self._null
		self.touched[id] = false
	}
	self.changed.Clear()
}
