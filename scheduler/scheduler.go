package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/coreybb/callcheck/annotator"
	"github.com/coreybb/callcheck/relay"
)

const (
	DefaultInterval = time.Second
	// DefaultTickTimeout bounds one tick, page load included.
	DefaultTickTimeout = 15 * time.Second
)

// Bridge is the data the poller reads from the bridge server.
type Bridge interface {
	CurrentCallsign(ctx context.Context) (string, error)
	Callsigns(ctx context.Context) ([]string, error)
}

// Options configures a Scheduler.
type Options struct {
	Interval      time.Duration
	LookupBaseURL string
	// TickTimeout caps a single tick so a hung page load releases the in-flight guard.
	TickTimeout time.Duration
	// WatchPath, when set, triggers an extra tick whenever that file is written.
	WatchPath string
}

// Stats counts scheduler activity since creation.
type Stats struct {
	Ticks         int
	Skipped       int
	Navigations   int
	Annotations   int
	FetchFailures int
	LastTickAt    time.Time
}

// TickResult describes what a single tick did.
type TickResult struct {
	ID         string
	Skipped    bool
	NavigateTo string // callsign the page was sent to, empty if unchanged
	Annotated  bool
}

// Scheduler polls the bridge, keeps the lookup page on the current callsign,
// and styles the displayed callsign against the logbook.
type Scheduler struct {
	bridge   Bridge
	relay    *relay.Relay
	renderer annotator.Renderer
	opts     Options

	inFlight atomic.Bool
	ticks    sync.WaitGroup

	mu    sync.Mutex
	stats Stats
}

// New creates a new Scheduler with all required dependencies.
func New(bridge Bridge, r *relay.Relay, renderer annotator.Renderer, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.LookupBaseURL == "" {
		opts.LookupBaseURL = annotator.DefaultLookupBaseURL
	}
	if opts.TickTimeout <= 0 {
		opts.TickTimeout = DefaultTickTimeout
	}
	return &Scheduler{
		bridge:   bridge,
		relay:    r,
		renderer: renderer,
		opts:     opts,
	}
}

// HandleTick is an HTTP handler that triggers a scheduler tick.
func (s *Scheduler) HandleTick(w http.ResponseWriter, r *http.Request) {
	log.Println("INFO (Scheduler): Tick triggered via HTTP")

	result, err := s.Tick(r.Context())
	if err != nil {
		log.Printf("ERROR (Scheduler): Tick failed: %v", err)
		http.Error(w, "scheduler tick failed", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	switch {
	case result.Skipped:
		fmt.Fprint(w, "OK: skipped, previous tick still running")
	case result.NavigateTo != "":
		fmt.Fprintf(w, "OK: navigated to %s, annotated=%t", result.NavigateTo, result.Annotated)
	default:
		fmt.Fprintf(w, "OK: annotated=%t", result.Annotated)
	}
}

// Stats returns a snapshot of the counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Run ticks every Interval until ctx is cancelled. A tick that comes due while
// the previous one is still running is skipped. Run waits for the running tick
// before returning.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()
	defer s.ticks.Wait()

	var events <-chan fsnotify.Event
	var watchErrs <-chan error
	if s.opts.WatchPath != "" {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to create file watcher: %w", err)
		}
		defer watcher.Close()

		// Watch the directory so atomic replace-by-rename is still seen.
		if err := watcher.Add(filepath.Dir(s.opts.WatchPath)); err != nil {
			log.Printf("WARN (Scheduler): Cannot watch %s, falling back to timer only: %v", s.opts.WatchPath, err)
		} else {
			events = watcher.Events
			watchErrs = watcher.Errors
			log.Printf("INFO (Scheduler): Watching %s for changes", s.opts.WatchPath)
		}
	}

	log.Printf("INFO (Scheduler): Polling every %s", s.opts.Interval)
	s.launch(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Println("INFO (Scheduler): Stopping")
			return nil
		case <-ticker.C:
			s.launch(ctx)
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(ev.Name) == filepath.Clean(s.opts.WatchPath) && ev.Has(fsnotify.Write|fsnotify.Create) {
				s.launch(ctx)
			}
		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			log.Printf("WARN (Scheduler): File watcher error: %v", err)
		}
	}
}

// launch starts a tick in the background so the loop keeps its cadence;
// the in-flight guard inside Tick rejects overlaps.
func (s *Scheduler) launch(ctx context.Context) {
	s.ticks.Add(1)
	go func() {
		defer s.ticks.Done()
		if _, err := s.Tick(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("ERROR (Scheduler): Tick failed: %v", err)
		}
	}()
}

// Tick runs one poll cycle: the navigation pass, then the annotation pass.
// The callsign list is fetched while the navigation pass runs.
func (s *Scheduler) Tick(ctx context.Context) (TickResult, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.record(func(st *Stats) { st.Skipped++ })
		log.Println("WARN (Scheduler): Previous tick still running, skipping")
		return TickResult{Skipped: true}, nil
	}
	defer s.inFlight.Store(false)

	ctx, cancel := context.WithTimeout(ctx, s.opts.TickTimeout)
	defer cancel()

	result := TickResult{ID: uuid.NewString()}
	s.record(func(st *Stats) {
		st.Ticks++
		st.LastTickAt = time.Now().UTC()
	})

	var known []string
	var listErr error
	var g errgroup.Group
	g.Go(func() error {
		known, listErr = s.bridge.Callsigns(ctx)
		return nil
	})
	g.Go(func() error {
		navigated, err := s.navigationPass(ctx)
		result.NavigateTo = navigated
		return err
	})
	navErr := g.Wait()

	var annotateErr error
	if listErr != nil {
		// Keep whatever styling the page already shows.
		s.record(func(st *Stats) { st.FetchFailures++ })
		log.Printf("WARN (Scheduler): [%s] Callsign list unavailable, leaving styling unchanged: %v", result.ID, listErr)
	} else {
		result.Annotated, annotateErr = annotator.Annotate(ctx, s.renderer, known)
		if result.Annotated {
			s.record(func(st *Stats) { st.Annotations++ })
		}
	}

	if err := errors.Join(navErr, annotateErr); err != nil {
		return result, fmt.Errorf("tick %s: %w", result.ID, err)
	}
	return result, nil
}

// navigationPass sends the page to the current callsign when it changed.
// It returns the callsign navigated to, or "" when nothing changed.
func (s *Scheduler) navigationPass(ctx context.Context) (string, error) {
	current, err := s.bridge.CurrentCallsign(ctx)
	if err != nil {
		s.record(func(st *Stats) { st.FetchFailures++ })
		log.Printf("WARN (Scheduler): Current callsign unavailable: %v", err)
		return "", nil
	}
	if current == "" {
		return "", nil
	}

	last, err := s.relay.LastCallsign(ctx)
	if err != nil {
		return "", err
	}
	if last != nil && *last == current {
		return "", nil
	}

	// Last-seen only moves once the page is really on the new callsign,
	// so a failed load is retried on the next tick.
	target := annotator.LookupURL(s.opts.LookupBaseURL, current)
	if err := s.renderer.Navigate(ctx, target); err != nil {
		return "", fmt.Errorf("failed to open lookup page for %s: %w", current, err)
	}
	if err := s.relay.SetLastCallsign(ctx, current); err != nil {
		return "", err
	}

	s.record(func(st *Stats) { st.Navigations++ })
	log.Printf("INFO (Scheduler): Navigated to %s", target)
	return current, nil
}

func (s *Scheduler) record(update func(*Stats)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	update(&s.stats)
}
