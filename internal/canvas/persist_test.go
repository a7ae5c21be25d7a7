package canvas

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"satupapan/internal/shape"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBridge struct {
	mu    sync.Mutex
	saves [][]shape.Shape
	err   error
}

func (b *fakeBridge) LoadShapes(context.Context, string) ([]shape.Shape, error) {
	return []shape.Shape{}, nil
}

func (b *fakeBridge) SaveShapes(_ context.Context, docID string, shapes []shape.Shape) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.saves = append(b.saves, shapes)
	return nil
}

func (b *fakeBridge) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.saves)
}

func (b *fakeBridge) lastSave() []shape.Shape {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saves[len(b.saves)-1]
}

const testDelay = 20 * time.Millisecond

func TestPersisterCoalescesBursts(t *testing.T) {
	b := &fakeBridge{}
	p := NewPersister(b, "doc-1", testDelay)

	p.Schedule([]shape.Shape{rect("a", 0, 0, 1, 1)})
	p.Schedule([]shape.Shape{rect("a", 0, 0, 1, 1), rect("b", 0, 0, 1, 1)})
	p.Schedule([]shape.Shape{rect("c", 0, 0, 1, 1)})

	require.Eventually(t, func() bool { return b.count() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(3 * testDelay)
	assert.Equal(t, 1, b.count())
	assert.Equal(t, "c", b.lastSave()[0].ID)
}

func TestPersisterSavesDetachedCopies(t *testing.T) {
	b := &fakeBridge{}
	p := NewPersister(b, "doc-1", testDelay)

	s := rect("a", 0, 0, 1, 1)
	s.Selected = true
	shapes := []shape.Shape{s}
	p.Schedule(shapes)
	shapes[0].Points[0] = pt(99, 99)
	p.Flush()

	require.Equal(t, 1, b.count())
	saved := b.lastSave()[0]
	assert.False(t, saved.Selected)
	assert.Equal(t, pt(0, 0), saved.Points[0])
}

func TestPersisterPauseDiscard(t *testing.T) {
	b := &fakeBridge{}
	p := NewPersister(b, "doc-1", testDelay)

	p.Pause()
	p.Schedule([]shape.Shape{rect("a", 0, 0, 1, 1)})
	time.Sleep(3 * testDelay)
	assert.Equal(t, 0, b.count())

	p.Resume(true)
	p.Flush()
	assert.Equal(t, 0, b.count())
}

func TestPersisterPauseResumeKeeps(t *testing.T) {
	b := &fakeBridge{}
	p := NewPersister(b, "doc-1", testDelay)

	p.Pause()
	p.Schedule([]shape.Shape{rect("a", 0, 0, 1, 1)})
	p.Resume(false)

	require.Eventually(t, func() bool { return b.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestPersisterSwallowsErrors(t *testing.T) {
	b := &fakeBridge{err: errors.New("boom")}
	p := NewPersister(b, "doc-1", testDelay)

	p.Schedule([]shape.Shape{rect("a", 0, 0, 1, 1)})
	p.Flush()
	assert.Equal(t, 0, b.count())

	b.mu.Lock()
	b.err = nil
	b.mu.Unlock()
	p.Flush()
	assert.Equal(t, 0, b.count(), "a failed save is not retried")
}
