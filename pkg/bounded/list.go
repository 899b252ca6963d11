package bounded

// List is an ordered list that never grows beyond Cap elements.
type List[T any] struct {
	Items []T
	Cap   int
}

func NewList[T any](capacity int) List[T] {
	return List[T]{Cap: capacity}
}

// Append adds v to the end of the list. Once the list is full the value is dropped
// and Append returns false.
func (l *List[T]) Append(v T) bool {
	if len(l.Items) >= l.Cap {
		return false
	}

	l.Items = append(l.Items, v)
	return true
}

func (l List[T]) Len() int {
	return len(l.Items)
}

func (l List[T]) Full() bool {
	return len(l.Items) >= l.Cap
}

// At returns the element at index i and false when i is out of range.
func (l List[T]) At(i int) (T, bool) {
	if i < 0 || i >= len(l.Items) {
		var zero T
		return zero, false
	}

	return l.Items[i], true
}

// Reset empties the list. The backing array is released rather than reused so a
// copy promoted elsewhere never shares storage with the next working copy.
func (l *List[T]) Reset() {
	l.Items = nil
}

// Clone returns a copy that does not share storage with l.
func (l List[T]) Clone() List[T] {
	c := List[T]{Cap: l.Cap}
	if l.Items != nil {
		c.Items = make([]T, len(l.Items))
		copy(c.Items, l.Items)
	}

	return c
}
