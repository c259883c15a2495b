package kafka

import (
	"context"
	"errors"
	"sync"
	"time"
)

var errControllerClosed = errors.New("kafka: ingest controller closed")

// Controller is a token bucket bounding how fast rows are appended to a
// stream table. Tokens refill every tick up to capacity.
type Controller struct {
	capacity int64
	refill   int64

	mu     sync.Mutex
	tokens int64
	cond   *sync.Cond
	closed bool
}

func NewController(capacity, refill int64, tick time.Duration) *Controller {
	c := &Controller{
		capacity: capacity,
		refill:   refill,
		tokens:   capacity,
	}
	c.cond = sync.NewCond(&c.mu)

	go func() {
		t := time.NewTicker(tick)
		defer t.Stop()
		for range t.C {
			c.mu.Lock()
			if c.closed {
				c.mu.Unlock()
				return
			}
			c.tokens = min(c.tokens+c.refill, c.capacity)
			c.mu.Unlock()
			c.cond.Broadcast()
		}
	}()
	return c
}

// Acquire takes one token, waiting for a refill if the bucket is empty.
func (c *Controller) Acquire(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.tokens == 0 && !c.closed && ctx.Err() == nil {
		c.cond.Wait()
	}
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case c.closed:
		return errControllerClosed
	}
	c.tokens--
	return nil
}

// Wake unblocks waiters so they can observe a cancelled context.
func (c *Controller) Wake() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cond.Broadcast()
}

func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cond.Broadcast()
}
