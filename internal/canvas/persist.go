package canvas

import (
	"context"
	"sync"
	"time"

	"satupapan/internal/shape"
	"satupapan/pkg/logger"

	"github.com/bep/debounce"
)

// Bridge is the durable store of a whiteboard's shapes.
type Bridge interface {
	LoadShapes(ctx context.Context, docID string) ([]shape.Shape, error)
	SaveShapes(ctx context.Context, docID string, shapes []shape.Shape) error
}

// Saver receives the full collection after every settled mutation.
type Saver interface {
	Schedule(shapes []shape.Shape)
}

const (
	DefaultSaveDelay   = 500 * time.Millisecond
	defaultSaveTimeout = 10 * time.Second
)

// Persister coalesces save requests: only the latest collection is written, once the mutations
// have been quiet for the debounce delay. Failures are logged and dropped.
type Persister struct {
	bridge  Bridge
	docID   string
	timeout time.Duration
	trigger func(f func())

	mu      sync.Mutex
	pending []shape.Shape
	dirty   bool
	paused  bool
	saving  sync.Mutex
}

func NewPersister(bridge Bridge, docID string, delay time.Duration) *Persister {
	if delay <= 0 {
		delay = DefaultSaveDelay
	}
	return &Persister{
		bridge:  bridge,
		docID:   docID,
		timeout: defaultSaveTimeout,
		trigger: debounce.New(delay),
	}
}

func (p *Persister) Schedule(shapes []shape.Shape) {
	p.mu.Lock()
	p.pending = snapshot(shapes)
	p.dirty = true
	paused := p.paused
	p.mu.Unlock()
	if !paused {
		p.trigger(p.flush)
	}
}

// Pause holds saves while the connection is down.
func (p *Persister) Pause() {
	p.mu.Lock()
	p.paused = true
	p.mu.Unlock()
}

// Resume re-enables saves. With discard set, whatever was scheduled while paused is dropped: the
// local state is stale until the next authoritative broadcast arrives.
func (p *Persister) Resume(discard bool) {
	p.mu.Lock()
	p.paused = false
	if discard {
		p.pending = nil
		p.dirty = false
	}
	dirty := p.dirty
	p.mu.Unlock()
	if dirty {
		p.trigger(p.flush)
	}
}

// Flush writes any pending collection now. It is used on shutdown.
func (p *Persister) Flush() {
	p.flush()
}

func (p *Persister) flush() {
	p.saving.Lock()
	defer p.saving.Unlock()

	p.mu.Lock()
	if !p.dirty || p.paused {
		p.mu.Unlock()
		return
	}
	shapes := p.pending
	p.pending = nil
	p.dirty = false
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.bridge.SaveShapes(ctx, p.docID, shapes); err != nil {
		logger.Sugar.Errorf("Failed to save whiteboard %s: %v", p.docID, err)
		return
	}
	logger.Sugar.Debugf("Saved whiteboard %s (%d shapes)", p.docID, len(shapes))
}
