package library

// NewAccountQueue returns a new Account queue (FIFO) with the given initial size.
func NewAccountQueue(size int) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{
		nodes: make([]Account, size),
		size:  size,
	}
}

// Queue is a FIFO queue of accounts that resizes as needed.
type Queue struct {
	nodes []Account
	size  int
	head  int
	tail  int
	count int
}

// Push adds an Account to the queue.
func (q *Queue) Push(n Account) {
	if q.head == q.tail && q.count > 0 {
		nodes := make([]Account, len(q.nodes)+q.size)
		copy(nodes, q.nodes[q.head:])
		copy(nodes[len(q.nodes)-q.head:], q.nodes[:q.head])
		q.head = 0
		q.tail = len(q.nodes)
		q.nodes = nodes
	}
	q.nodes[q.tail] = n
	q.tail = (q.tail + 1) % len(q.nodes)
	q.count++
}

// Pop removes and returns an Account from the queue in first to last order.
func (q *Queue) Pop() (Account, bool) {
	if q.count == 0 {
		return "", false
	}
	node := q.nodes[q.head]
	q.head = (q.head + 1) % len(q.nodes)
	q.count--
	return node, true
}

func (q *Queue) Len() int {
	return q.count
}
