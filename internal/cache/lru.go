package cache

// entry is a node of the recency list. It carries the cached value so that
// eviction needs no second map lookup.
type entry[K comparable, V any] struct {
	key   K
	value V
	prev  *entry[K, V]
	next  *entry[K, V]
}

// recency is a doubly-linked list ordered from most to least recently
// used. It is not safe for concurrent use; Cache holds its lock.
type recency[K comparable, V any] struct {
	head *entry[K, V]
	tail *entry[K, V]
	len  int
}

func (l *recency[K, V]) pushFront(e *entry[K, V]) {
	e.prev = nil
	e.next = l.head
	if l.head != nil {
		l.head.prev = e
	}
	l.head = e
	if l.tail == nil {
		l.tail = e
	}
	l.len++
}

func (l *recency[K, V]) touch(e *entry[K, V]) {
	if e == l.head {
		return
	}
	l.unlink(e)
	l.pushFront(e)
}

// popBack removes and returns the least recently used entry, nil when empty.
func (l *recency[K, V]) popBack() *entry[K, V] {
	e := l.tail
	if e != nil {
		l.unlink(e)
	}
	return e
}

func (l *recency[K, V]) unlink(e *entry[K, V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		l.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		l.tail = e.prev
	}
	e.prev, e.next = nil, nil
	l.len--
}
