package purchase

import (
	"context"
	"sync"

	"shopbot-svc/models"

	"go.uber.org/zap"
)

const asyncQueueSize = 256

type queuedEvent struct {
	ctx   context.Context
	event models.PurchaseEvent
}

// asyncPublisher forwards events to the wrapped publisher from a single
// goroutine. enqueue never blocks; events are dropped when the queue is full.
type asyncPublisher struct {
	next   EventPublisher
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan queuedEvent
	done   chan struct{}
}

func newAsyncPublisher(next EventPublisher, size int, logger *zap.Logger) *asyncPublisher {
	p := &asyncPublisher{
		next:   next,
		logger: logger,
		queue:  make(chan queuedEvent, size),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *asyncPublisher) enqueue(ctx context.Context, event models.PurchaseEvent) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.queue <- queuedEvent{ctx: context.WithoutCancel(ctx), event: event}:
		return true
	default:
		return false
	}
}

func (p *asyncPublisher) run() {
	defer close(p.done)
	for q := range p.queue {
		if err := p.next.Publish(q.ctx, q.event); err != nil {
			p.logger.Error("Failed to publish purchase event",
				zap.String("event_type", string(q.event.EventType)),
				zap.String("payload_token", q.event.PayloadToken),
				zap.Error(err),
			)
		}
	}
}

// close stops accepting events and waits for the queued ones to be published.
func (p *asyncPublisher) close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	<-p.done
}
