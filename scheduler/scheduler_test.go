package scheduler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/coreybb/callcheck/annotator"
	"github.com/coreybb/callcheck/relay"
)

const lookupPage = `<html><body><span class="csignm hamcall">K1ABC</span></body></html>`

type fakeBridge struct {
	mu       sync.Mutex
	current  string
	calls    []string
	curErr   error
	listErr  error
	block    chan struct{}
	listHits int
}

func (f *fakeBridge) CurrentCallsign(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, f.curErr
}

func (f *fakeBridge) Callsigns(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	block := f.block
	f.listHits++
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls, f.listErr
}

func (f *fakeBridge) set(update func(*fakeBridge)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	update(f)
}

func newDoc(t *testing.T) *annotator.DocumentRenderer {
	t.Helper()
	doc, err := annotator.ParseDocument(strings.NewReader(lookupPage), "")
	require.NoError(t, err)
	return doc
}

func TestTickNavigatesOnNewCallsign(t *testing.T) {
	bridge := &fakeBridge{current: "W1AW", calls: []string{"K1ABC"}}
	r := relay.New(nil)
	doc := newDoc(t)
	s := New(bridge, r, doc, Options{})
	ctx := context.Background()

	result, err := s.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, "W1AW", result.NavigateTo)
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, "https://www.qrz.com/db/W1AW", doc.Location())

	last, err := r.LastCallsign(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "W1AW", *last)

	// Same callsign on the next tick: no navigation.
	require.NoError(t, doc.Navigate(ctx, ""))
	result, err = s.Tick(ctx)
	require.NoError(t, err)
	assert.Empty(t, result.NavigateTo)
	assert.Empty(t, doc.Location())
	assert.Equal(t, 1, s.Stats().Navigations)
}

func TestTickNoCurrentCallsign(t *testing.T) {
	tests := []struct {
		name   string
		bridge *fakeBridge
	}{
		{name: "empty file", bridge: &fakeBridge{current: ""}},
		{name: "fetch failure", bridge: &fakeBridge{curErr: errors.New("connection refused")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := relay.New(nil)
			doc := newDoc(t)
			s := New(tt.bridge, r, doc, Options{})

			result, err := s.Tick(context.Background())
			require.NoError(t, err)
			assert.Empty(t, result.NavigateTo)
			assert.Empty(t, doc.Location())

			last, err := r.LastCallsign(context.Background())
			require.NoError(t, err)
			assert.Nil(t, last)
		})
	}
}

func TestTickHighlightsKnownCallsign(t *testing.T) {
	bridge := &fakeBridge{calls: []string{"W1AW", "K1ABC"}}
	doc := newDoc(t)
	s := New(bridge, relay.New(nil), doc, Options{})

	result, err := s.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Annotated)
	assert.Contains(t, doc.Style(), "border: 2px solid lime")
}

func TestTickClearsUnknownCallsign(t *testing.T) {
	bridge := &fakeBridge{calls: []string{"K1ABC"}}
	doc := newDoc(t)
	s := New(bridge, relay.New(nil), doc, Options{})
	ctx := context.Background()

	_, err := s.Tick(ctx)
	require.NoError(t, err)
	require.Contains(t, doc.Style(), "2px solid lime")

	bridge.set(func(f *fakeBridge) { f.calls = []string{} })
	_, err = s.Tick(ctx)
	require.NoError(t, err)
	assert.Contains(t, doc.Style(), "border: none")
}

func TestTickListFailurePreservesStyling(t *testing.T) {
	bridge := &fakeBridge{calls: []string{"K1ABC"}}
	doc := newDoc(t)
	s := New(bridge, relay.New(nil), doc, Options{})
	ctx := context.Background()

	_, err := s.Tick(ctx)
	require.NoError(t, err)
	highlighted := doc.Style()

	bridge.set(func(f *fakeBridge) { f.listErr = errors.New("500 Error reading file") })
	result, err := s.Tick(ctx)
	require.NoError(t, err)
	assert.False(t, result.Annotated)
	assert.Equal(t, highlighted, doc.Style())
	assert.Equal(t, 1, s.Stats().FetchFailures)
}

func TestTickSkipsWhilePreviousInFlight(t *testing.T) {
	release := make(chan struct{})
	bridge := &fakeBridge{calls: []string{"K1ABC"}, block: release}
	s := New(bridge, relay.New(nil), newDoc(t), Options{})

	done := make(chan TickResult)
	go func() {
		result, _ := s.Tick(context.Background())
		done <- result
	}()
	require.Eventually(t, func() bool { return s.Stats().Ticks == 1 }, time.Second, time.Millisecond)

	result, err := s.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Skipped)

	close(release)
	first := <-done
	assert.False(t, first.Skipped)
	assert.True(t, first.Annotated)

	stats := s.Stats()
	assert.Equal(t, 1, stats.Ticks)
	assert.Equal(t, 1, stats.Skipped)
}

type failingRenderer struct{ *annotator.DocumentRenderer }

func (failingRenderer) Navigate(context.Context, string) error { return errors.New("tab closed") }

func TestTickReportsNavigationFailure(t *testing.T) {
	bridge := &fakeBridge{current: "W1AW", calls: []string{"K1ABC"}}
	s := New(bridge, relay.New(nil), failingRenderer{newDoc(t)}, Options{})

	result, err := s.Tick(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "tab closed")
	// The annotation pass still runs.
	assert.True(t, result.Annotated)
}

// flakyRenderer fails the first failures navigations, then behaves.
type flakyRenderer struct {
	*annotator.DocumentRenderer
	mu       sync.Mutex
	failures int
}

func (f *flakyRenderer) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return errors.New("tab busy")
	}
	f.mu.Unlock()
	return f.DocumentRenderer.Navigate(ctx, url)
}

func TestTickRetriesNavigationAfterFailure(t *testing.T) {
	bridge := &fakeBridge{current: "W1AW", calls: []string{"K1ABC"}}
	r := relay.New(nil)
	renderer := &flakyRenderer{DocumentRenderer: newDoc(t), failures: 1}
	s := New(bridge, r, renderer, Options{})
	ctx := context.Background()

	_, err := s.Tick(ctx)
	require.ErrorContains(t, err, "tab busy")

	last, err := r.LastCallsign(ctx)
	require.NoError(t, err)
	assert.Nil(t, last, "last-seen must not advance when the page did not load")

	result, err := s.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, "W1AW", result.NavigateTo)
	assert.Equal(t, "https://www.qrz.com/db/W1AW", renderer.Location())

	last, err = r.LastCallsign(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "W1AW", *last)
}

// hangingRenderer blocks its first navigation until the context ends,
// like a page load that never completes.
type hangingRenderer struct {
	*annotator.DocumentRenderer
	mu   sync.Mutex
	hung bool
}

func (h *hangingRenderer) Navigate(ctx context.Context, url string) error {
	h.mu.Lock()
	first := !h.hung
	h.hung = true
	h.mu.Unlock()
	if first {
		<-ctx.Done()
		return ctx.Err()
	}
	return h.DocumentRenderer.Navigate(ctx, url)
}

func TestTickTimeoutReleasesInFlightGuard(t *testing.T) {
	bridge := &fakeBridge{current: "W1AW", calls: []string{"K1ABC"}}
	renderer := &hangingRenderer{DocumentRenderer: newDoc(t)}
	s := New(bridge, relay.New(nil), renderer, Options{TickTimeout: 50 * time.Millisecond})

	start := time.Now()
	_, err := s.Tick(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)

	result, err := s.Tick(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, "W1AW", result.NavigateTo)
}

func TestRunRecoversFromHungPageLoad(t *testing.T) {
	defer goleak.VerifyNone(t)

	bridge := &fakeBridge{current: "W1AW", calls: []string{"K1ABC"}}
	renderer := &hangingRenderer{DocumentRenderer: newDoc(t)}
	s := New(bridge, relay.New(nil), renderer, Options{
		Interval:    10 * time.Millisecond,
		TickTimeout: 50 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return renderer.Location() == "https://www.qrz.com/db/W1AW"
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, s.Stats().Navigations)

	cancel()
	require.NoError(t, <-errCh)
}

func TestHandleTick(t *testing.T) {
	bridge := &fakeBridge{current: "W1AW", calls: []string{"K1ABC"}}
	s := New(bridge, relay.New(nil), newDoc(t), Options{LookupBaseURL: "http://lookup.test/db/"})

	rec := httptest.NewRecorder()
	s.HandleTick(rec, httptest.NewRequest(http.MethodPost, "/scheduler/tick", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK: navigated to W1AW, annotated=true", rec.Body.String())
}

func TestRunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	bridge := &fakeBridge{calls: []string{"K1ABC"}}
	s := New(bridge, relay.New(nil), newDoc(t), Options{Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return s.Stats().Ticks >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunTicksOnWatchedFileWrite(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	dxInput := filepath.Join(dir, "dx_input_log.txt")
	require.NoError(t, os.WriteFile(dxInput, []byte(""), 0644))

	bridge := &fakeBridge{calls: []string{}}
	doc := newDoc(t)
	s := New(bridge, relay.New(nil), doc, Options{Interval: time.Hour, WatchPath: dxInput})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	// The first tick runs immediately on start.
	require.Eventually(t, func() bool {
		return s.Stats().Annotations == 1 && !s.inFlight.Load()
	}, 2*time.Second, 5*time.Millisecond)

	bridge.set(func(f *fakeBridge) { f.current = "W1AW" })
	require.NoError(t, os.WriteFile(dxInput, []byte("W1AW\n"), 0644))

	require.Eventually(t, func() bool { return doc.Location() == "https://www.qrz.com/db/W1AW" }, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-errCh)
}
