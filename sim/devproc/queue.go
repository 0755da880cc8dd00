package devproc

// fifo is a first-in-first-out queue that also supports removing the first
// element matching a predicate, so dispatch can skip ineligible heads.
type fifo[T comparable] struct {
	items []T
}

func (q *fifo[T]) push(x T) {
	q.items = append(q.items, x)
}

func (q *fifo[T]) len() int {
	return len(q.items)
}

// first returns the first element matching fn without removing it.
func (q *fifo[T]) first(fn func(T) bool) (T, bool) {
	for _, x := range q.items {
		if fn(x) {
			return x, true
		}
	}
	var zero T
	return zero, false
}

// removeFirst removes and returns the first element matching fn.
// fn is called on elements in queue order until it matches.
func (q *fifo[T]) removeFirst(fn func(T) bool) (T, bool) {
	for i, x := range q.items {
		if fn(x) {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return x, true
		}
	}
	var zero T
	return zero, false
}

// remove deletes x if present.
func (q *fifo[T]) remove(x T) bool {
	_, ok := q.removeFirst(func(y T) bool { return y == x })
	return ok
}
