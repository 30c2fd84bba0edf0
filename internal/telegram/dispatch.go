package telegram

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// dispatcher serializes update handling per user while different users are
// handled concurrently: one goroutine and one ordered queue per active
// user. Queues are unbounded, so enqueue returns immediately no matter how
// far behind a worker is, and shutdown is signalled through a done channel
// rather than by closing a channel a producer could be sending on.
type dispatcher struct {
	mu     sync.Mutex
	queues map[int64]*userQueue
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup

	handle func(tgbotapi.Update)
}

type userQueue struct {
	mu      sync.Mutex
	pending []tgbotapi.Update

	// wake carries at most one token; the worker rechecks pending until
	// empty, so a dropped send never strands an update.
	wake chan struct{}
}

func newDispatcher(handle func(tgbotapi.Update)) *dispatcher {
	return &dispatcher{
		queues: make(map[int64]*userQueue),
		done:   make(chan struct{}),
		handle: handle,
	}
}

// enqueue queues an update for the user, starting their worker on first
// use. Enqueue order for a single user is handling order. Never blocks: a
// slow handler for one user must not delay the shared update loop.
func (d *dispatcher) enqueue(userID int64, update tgbotapi.Update) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}

	queue, ok := d.queues[userID]
	if !ok {
		queue = &userQueue{wake: make(chan struct{}, 1)}
		d.queues[userID] = queue
		d.wg.Add(1)
		go d.drain(queue)
	}
	d.mu.Unlock()

	queue.mu.Lock()
	queue.pending = append(queue.pending, update)
	queue.mu.Unlock()

	select {
	case queue.wake <- struct{}{}:
	default:
	}
}

func (d *dispatcher) drain(queue *userQueue) {
	defer d.wg.Done()
	for {
		select {
		case <-queue.wake:
			d.flush(queue)
		case <-d.done:
			// The closed gate stops further enqueues before done is
			// signalled, so this flush handles the final backlog.
			d.flush(queue)
			return
		}
	}
}

func (d *dispatcher) flush(queue *userQueue) {
	for {
		queue.mu.Lock()
		if len(queue.pending) == 0 {
			queue.mu.Unlock()
			return
		}
		update := queue.pending[0]
		queue.pending = queue.pending[1:]
		queue.mu.Unlock()

		d.handle(update)
	}
}

// close stops accepting updates, lets every worker finish its backlog, and
// waits for them to exit.
func (d *dispatcher) close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	close(d.done)
	d.wg.Wait()
}
