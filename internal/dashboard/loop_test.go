package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/nmeatop/internal/status"
)

type recordingRenderer struct {
	mu     sync.Mutex
	frames []status.Snapshot
	onDraw func(n int) error
}

func (r *recordingRenderer) Render(snap status.Snapshot) error {
	r.mu.Lock()
	r.frames = append(r.frames, snap)
	n := len(r.frames)
	r.mu.Unlock()
	if r.onDraw != nil {
		return r.onDraw(n)
	}
	return nil
}

func (r *recordingRenderer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func runAsync(ctx context.Context, l *Loop) <-chan error {
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	return done
}

func wait(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("render loop did not terminate")
		return nil
	}
}

func TestLoopRendersUntilEscape(t *testing.T) {
	store := status.New(time.Minute)
	store.Update(status.Lat, status.Number(12.5))

	r := &recordingRenderer{}
	events := make(chan Event, 1)
	l := New(store, r, events, 200, nil)
	assert.Equal(t, Running, l.State())

	done := runAsync(context.Background(), l)
	require.Eventually(t, func() bool { return r.count() >= 3 }, time.Second, time.Millisecond)

	events <- Event{Key: KeyEscape}
	require.NoError(t, wait(t, done))
	assert.Equal(t, Terminated, l.State())

	r.mu.Lock()
	defer r.mu.Unlock()
	assert.Equal(t, "12.500000", r.frames[0].Display(status.Lat))
	assert.Equal(t, status.Unknown, r.frames[0].Display(status.Alt))
}

func TestLoopIgnoresOtherKeys(t *testing.T) {
	r := &recordingRenderer{}
	events := make(chan Event)
	l := New(status.New(time.Second), r, events, 200, nil)
	done := runAsync(context.Background(), l)

	events <- Event{Key: KeyRune, Rune: 'q'}
	events <- Event{Key: KeyOther}
	assert.Equal(t, Running, l.State())

	require.Eventually(t, func() bool { return r.count() >= 2 }, time.Second, time.Millisecond)
	events <- Event{Key: KeyCtrlC}
	require.NoError(t, wait(t, done))
	assert.Equal(t, Terminated, l.State())
}

func TestLoopQuitPendingBeatsTick(t *testing.T) {
	events := make(chan Event, 1)
	var l *Loop
	r := &recordingRenderer{}
	r.onDraw = func(n int) error {
		if n == 1 {
			events <- Event{Key: KeyEscape}
			// let the next tick become ready as well
			time.Sleep(4 * l.interval)
		}
		return nil
	}
	l = New(status.New(time.Second), r, events, 100, nil)

	require.NoError(t, wait(t, runAsync(context.Background(), l)))
	assert.Equal(t, 1, r.count())
	assert.Equal(t, uint64(1), l.Frames())
}

func TestLoopRenderErrorIsFatal(t *testing.T) {
	boom := errors.New("terminal gone")
	r := &recordingRenderer{onDraw: func(int) error { return boom }}
	l := New(status.New(time.Second), r, make(chan Event), 200, nil)

	err := wait(t, runAsync(context.Background(), l))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, r.count(), "render failures are not retried")
	assert.Equal(t, Terminated, l.State())
}

func TestLoopStopsOnContextCancel(t *testing.T) {
	l := New(status.New(time.Second), &recordingRenderer{}, make(chan Event), 200, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, l)
	cancel()
	require.NoError(t, wait(t, done))
	assert.Equal(t, Terminated, l.State())
}

func TestLoopStopsWhenEventsClose(t *testing.T) {
	events := make(chan Event)
	l := New(status.New(time.Second), &recordingRenderer{}, events, 200, nil)
	done := runAsync(context.Background(), l)
	close(events)
	require.NoError(t, wait(t, done))
}

func TestLoopTerminatedIsAbsorbing(t *testing.T) {
	events := make(chan Event, 1)
	r := &recordingRenderer{}
	l := New(status.New(time.Second), r, events, 200, nil)
	events <- Event{Key: KeyEscape}
	require.NoError(t, wait(t, runAsync(context.Background(), l)))

	before := r.count()
	require.NoError(t, l.Run(context.Background()))
	assert.Equal(t, before, r.count())
	assert.Equal(t, Terminated, l.State())
}

func TestNewDefaultRate(t *testing.T) {
	l := New(status.New(time.Second), &recordingRenderer{}, nil, 0, nil)
	assert.Equal(t, time.Second/60, l.interval)
}

func TestNewClampsRate(t *testing.T) {
	cases := []struct {
		rate float64
		want time.Duration
	}{
		{1e-10, 10 * time.Second},
		{0.1, 10 * time.Second},
		{1e9, time.Millisecond},
		{2, 500 * time.Millisecond},
	}
	for _, tc := range cases {
		l := New(status.New(time.Second), &recordingRenderer{}, nil, tc.rate, nil)
		assert.InDelta(t, float64(tc.want), float64(l.interval), float64(time.Microsecond), "rate %g", tc.rate)
	}
}

func TestLoopRunsWithTinyRate(t *testing.T) {
	events := make(chan Event)
	l := New(status.New(time.Second), &recordingRenderer{}, events, 1e-10, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, l)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestEventIsQuit(t *testing.T) {
	assert.True(t, Event{Key: KeyEscape}.IsQuit())
	assert.True(t, Event{Key: KeyCtrlC}.IsQuit())
	assert.False(t, Event{Key: KeyRune, Rune: 'x'}.IsQuit())
	assert.Equal(t, "terminated", Terminated.String())
}
