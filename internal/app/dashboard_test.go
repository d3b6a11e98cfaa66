package app

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/nmeatop/internal/config"
	"github.com/relabs-tech/nmeatop/internal/dashboard"
	"github.com/relabs-tech/nmeatop/internal/ingest"
	"github.com/relabs-tech/nmeatop/internal/source"
	"github.com/relabs-tech/nmeatop/internal/status"
)

type fakeScreen struct {
	mu     sync.Mutex
	frames []status.Snapshot
	err    error
	events chan dashboard.Event
}

func newFakeScreen() *fakeScreen {
	return &fakeScreen{events: make(chan dashboard.Event, 1)}
}

func (s *fakeScreen) Render(snap status.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, snap)
	return s.err
}

func (s *fakeScreen) last() (status.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return status.Snapshot{}, false
	}
	return s.frames[len(s.frames)-1], true
}

func (s *fakeScreen) Events() <-chan dashboard.Event { return s.events }
func (s *fakeScreen) Close() error                   { return nil }

type failingSource struct{ err error }

func (f failingSource) NextLine(context.Context) (string, error) { return "", f.err }
func (f failingSource) Close() error                             { return nil }

const gga = "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47"

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Rate = 200
	cfg.Timeout = time.Minute
	return cfg
}

func runAsync(ctx context.Context, cfg *config.Config, src source.LineSource, screen Screen) (*status.Store, <-chan error) {
	store := status.New(cfg.Timeout)
	task := ingest.New(src, store, nil)
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, store, task, screen, nil) }()
	return store, done
}

func wait(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return")
		return nil
	}
}

func TestRunShowsDecodedFieldsAndQuits(t *testing.T) {
	screen := newFakeScreen()
	src := source.NewReader(io.NopCloser(strings.NewReader(gga + "\n")))
	_, done := runAsync(context.Background(), testConfig(), src, screen)

	require.Eventually(t, func() bool {
		snap, ok := screen.last()
		if !ok {
			return false
		}
		_, present := snap.Get(status.Alt)
		return present
	}, 2*time.Second, 5*time.Millisecond)

	screen.events <- dashboard.Event{Key: dashboard.KeyEscape}
	assert.NoError(t, wait(t, done))

	snap, _ := screen.last()
	assert.Equal(t, "545.4", snap.Display(status.Alt))
	assert.Equal(t, "Gps", snap.Display(status.FixTypeField))
	assert.Equal(t, status.Unknown, snap.Display(status.Heading))
}

func TestRunSourceErrorIsFatal(t *testing.T) {
	boom := errors.New("device unplugged")
	_, done := runAsync(context.Background(), testConfig(), failingSource{err: boom}, newFakeScreen())
	err := wait(t, done)
	assert.ErrorIs(t, err, boom)
}

func TestRunRenderErrorIsFatal(t *testing.T) {
	screen := newFakeScreen()
	screen.err = errors.New("terminal gone")
	src := source.NewReader(io.NopCloser(strings.NewReader("")))
	_, done := runAsync(context.Background(), testConfig(), src, screen)
	assert.ErrorIs(t, wait(t, done), screen.err)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := source.NewReader(io.NopCloser(strings.NewReader(gga + "\n")))
	_, done := runAsync(ctx, testConfig(), src, newFakeScreen())
	cancel()
	assert.NoError(t, wait(t, done))
}

func TestRunRecordsTrack(t *testing.T) {
	cfg := testConfig()
	cfg.Record.Path = filepath.Join(t.TempDir(), "track.csv")
	cfg.Record.Interval = 10 * time.Millisecond

	screen := newFakeScreen()
	src := source.NewReader(io.NopCloser(strings.NewReader(gga + "\n")))
	_, done := runAsync(context.Background(), cfg, src, screen)

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(cfg.Record.Path)
		return err == nil && strings.Contains(string(data), "545.4")
	}, 2*time.Second, 10*time.Millisecond)

	screen.events <- dashboard.Event{Key: dashboard.KeyCtrlC}
	assert.NoError(t, wait(t, done))
}

func TestRunBadRecordPath(t *testing.T) {
	cfg := testConfig()
	cfg.Record.Path = filepath.Join(t.TempDir(), "missing", "track.csv")
	src := source.NewReader(io.NopCloser(strings.NewReader("")))
	_, done := runAsync(context.Background(), cfg, src, newFakeScreen())
	assert.Error(t, wait(t, done))
}

func TestFooter(t *testing.T) {
	store := status.New(3 * time.Second)
	task := ingest.New(failingSource{err: io.EOF}, store, nil)
	assert.Equal(t, "lines 0  decoded 0  dropped 0  timeout 3s  [Esc] quit", Footer(task, store)())
}
