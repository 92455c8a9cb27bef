// Package lifecycle fuses the viewer registry and the start/stop gating of
// the frame source behind it, the way a SessionManager gates a capture
// pipeline by reference count.
package lifecycle

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"bambucam/internal/frame"
	"bambucam/internal/metrics"
	"bambucam/internal/source"
)

// Controller tracks the set of active viewers and owns the single producer
// goroutine that pulls frames from the Source and publishes them to the
// Slot. The 0→1 viewer transition connects the source and starts the
// producer; the 1→0 transition stops the producer and disconnects it.
type Controller struct {
	logger *zap.Logger
	src    source.Source
	slot   *frame.Slot

	mu       sync.Mutex
	viewers  map[string]struct{}
	cancel   context.CancelFunc
	producer sync.WaitGroup
	shutdown bool
}

// New returns a controller for src, publishing frames into slot.
func New(logger *zap.Logger, src source.Source, slot *frame.Slot) *Controller {
	return &Controller{
		logger:  logger,
		src:     src,
		slot:    slot,
		viewers: make(map[string]struct{}),
	}
}

// Join registers viewerID as an active viewer. On the 0→1 transition it
// connects the source and starts the producer loop; if Connect fails the
// viewer is not registered and the error is returned to the caller.
func (c *Controller) Join(ctx context.Context, viewerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shutdown {
		panic("lifecycle: Join called after Shutdown")
	}
	if _, ok := c.viewers[viewerID]; ok {
		return nil
	}
	if len(c.viewers) == 0 {
		if err := c.src.Connect(ctx); err != nil {
			return err
		}
		c.slot.Reset()
		c.startProducerLocked()
	}
	c.viewers[viewerID] = struct{}{}
	metrics.ActiveViewers.Set(float64(len(c.viewers)))
	c.logger.Info("viewer joined", zap.String("viewer", viewerID), zap.Int("count", len(c.viewers)))
	return nil
}

// Leave deregisters viewerID. On the 1→0 transition it stops the producer
// loop and disconnects the source.
func (c *Controller) Leave(viewerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.viewers[viewerID]; !ok {
		return
	}
	delete(c.viewers, viewerID)
	metrics.ActiveViewers.Set(float64(len(c.viewers)))
	c.logger.Info("viewer left", zap.String("viewer", viewerID), zap.Int("count", len(c.viewers)))
	if len(c.viewers) == 0 {
		c.stopProducerLocked()
	}
}

// Shutdown stops the producer unconditionally and rejects future Join
// calls. Intended for process teardown.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shutdown = true
	c.viewers = make(map[string]struct{})
	c.stopProducerLocked()
}

// startProducerLocked must be called with c.mu held.
func (c *Controller) startProducerLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.producer.Add(1)
	go c.produce(ctx)
}

// stopProducerLocked must be called with c.mu held.
func (c *Controller) stopProducerLocked() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	c.cancel = nil
	c.producer.Wait()
	c.src.Disconnect()
}

func (c *Controller) produce(ctx context.Context) {
	defer c.producer.Done()
	period := time.Duration(float64(time.Second) / c.src.FrameRate())
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		data, err := c.src.NextFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("frame source error", zap.Error(err))
			metrics.SourceErrors.Inc()
			select {
			case <-ctx.Done():
				return
			case <-time.After(period):
			}
			continue
		}
		c.slot.Publish(data)
		metrics.FramesPublished.Inc()
	}
}
