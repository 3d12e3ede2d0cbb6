package bridge

import (
	"sync"
)

// Handler receives messages for one side of a pipe. Handlers run one at a
// time, in send order, on the endpoint's delivery goroutine.
type Handler func(Message)

// Endpoint is one side of a bridge connection.
type Endpoint interface {
	// Send queues a message for the peer. It never blocks. Messages sent
	// after Close, or that the peer has no handler for yet, are dropped.
	Send(Message)

	// Listen registers the single handler for incoming messages,
	// replacing any previous one.
	Listen(Handler)

	// Close stops delivery in both directions.
	Close()
}

// Pipe returns two connected endpoints: the host side and the sandbox side.
// Each direction is ordered and at-most-once; there is no acknowledgement.
func Pipe() (host Endpoint, sandbox Endpoint) {
	toSandbox := newQueue()
	toHost := newQueue()
	shared := &sync.Once{}
	closeBoth := func() {
		shared.Do(func() {
			toSandbox.close()
			toHost.close()
		})
	}

	h := &pipeEnd{out: toSandbox, in: toHost, closeFn: closeBoth}
	s := &pipeEnd{out: toHost, in: toSandbox, closeFn: closeBoth}
	return h, s
}

type pipeEnd struct {
	out     *queue
	in      *queue
	closeFn func()
}

func (p *pipeEnd) Send(m Message) {
	// Round-trip through the wire form so only serializable data crosses.
	data, err := Encode(m)
	if err != nil {
		return
	}
	decoded, err := Decode(data)
	if err != nil {
		return
	}
	p.out.push(decoded)
}

func (p *pipeEnd) Listen(h Handler) {
	p.in.listen(h)
}

func (p *pipeEnd) Close() {
	p.closeFn()
}

// queue is an unbounded FIFO with a single delivery goroutine.
type queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []Message
	handler Handler
	started bool
	closed  bool
}

func newQueue() *queue {
	q := &queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *queue) push(m Message) {
	q.mu.Lock()
	defer q.mu.Unlock()

	// No listener yet: the receiving context is not wired, drop.
	if q.closed || q.handler == nil {
		return
	}
	q.items = append(q.items, m)
	q.cond.Signal()
}

func (q *queue) listen(h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.handler = h
	if !q.started {
		q.started = true
		go q.run()
	}
}

func (q *queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.items = nil
	q.cond.Broadcast()
}

func (q *queue) run() {
	for {
		q.mu.Lock()
		for len(q.items) == 0 && !q.closed {
			q.cond.Wait()
		}
		if q.closed {
			q.mu.Unlock()
			return
		}
		m := q.items[0]
		q.items[0] = Message{}
		q.items = q.items[1:]
		h := q.handler
		q.mu.Unlock()

		h(m)
	}
}
