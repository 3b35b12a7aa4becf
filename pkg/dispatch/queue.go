package dispatch

import "sync"

// fifo is an unbounded first-in first-out queue of tasks
type fifo struct {
	mx     sync.Mutex
	cond   *sync.Cond
	items  []*task
	closed bool
}

func newFIFO() *fifo {
	q := &fifo{}
	q.cond = sync.NewCond(&q.mx)
	return q
}

// push appends a task, unless the queue is closed
func (q *fifo) push(t *task) bool {
	q.mx.Lock()
	defer q.mx.Unlock()
	if q.closed {
		return false
	}
	q.items = append(q.items, t)
	q.cond.Signal()
	return true
}

// pop blocks until a task is available. It returns false once the queue is closed and drained.
func (q *fifo) pop() (*task, bool) {
	q.mx.Lock()
	defer q.mx.Unlock()
	for len(q.items) == 0 {
		if q.closed {
			return nil, false
		}
		q.cond.Wait()
	}
	t := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return t, true
}

func (q *fifo) close() {
	q.mx.Lock()
	defer q.mx.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

func (q *fifo) len() int {
	q.mx.Lock()
	defer q.mx.Unlock()
	return len(q.items)
}
