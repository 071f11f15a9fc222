package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/arcade-highscores/internal/config"
	"github.com/arcade-highscores/internal/domain"
)

type fakeTrimStore struct {
	mu      sync.Mutex
	calls   []trimCall
	deleted map[string]int64
	failOn  string
}

type trimCall struct {
	gameSlug string
	keep     int
}

func (f *fakeTrimStore) DeleteBelowTopN(ctx context.Context, gameSlug string, keep int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, trimCall{gameSlug: gameSlug, keep: keep})
	if gameSlug == f.failOn {
		return 0, errors.New("store unavailable")
	}
	return f.deleted[gameSlug], nil
}

func (f *fakeTrimStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testCatalog() *domain.Catalog {
	return domain.NewCatalog([]domain.Game{
		{Slug: "contra", Name: "Contra"},
		{Slug: "pacman", Name: "Pac-Man"},
		{Slug: "galaga", Name: "Galaga"},
	})
}

func newTestWorker(store TrimStore, interval time.Duration) *RetentionWorker {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRetentionWorker(store, testCatalog(), &config.RetentionConfig{
		Interval:    interval,
		KeepPerGame: 100,
		Enabled:     true,
	}, logger)
}

func TestRunOnceTrimsEveryGame(t *testing.T) {
	store := &fakeTrimStore{deleted: map[string]int64{"contra": 3, "pacman": 7}}
	w := newTestWorker(store, time.Hour)

	w.RunOnce(context.Background())

	if len(store.calls) != 3 {
		t.Fatalf("expected 3 trim calls, got %d", len(store.calls))
	}
	seen := make(map[string]bool)
	for _, call := range store.calls {
		seen[call.gameSlug] = true
		if call.keep != 100 {
			t.Fatalf("expected keep 100, got %d for %s", call.keep, call.gameSlug)
		}
	}
	for _, slug := range []string{"contra", "pacman", "galaga"} {
		if !seen[slug] {
			t.Fatalf("game %s was not trimmed", slug)
		}
	}
}

func TestRunOnceContinuesPastFailures(t *testing.T) {
	store := &fakeTrimStore{failOn: "contra"}
	w := newTestWorker(store, time.Hour)

	w.RunOnce(context.Background())

	if len(store.calls) != 3 {
		t.Fatalf("a failing game must not stop the cycle, got %d calls", len(store.calls))
	}
}

func TestStartStopLifecycle(t *testing.T) {
	store := &fakeTrimStore{}
	w := newTestWorker(store, time.Hour)

	if w.IsRunning() {
		t.Fatal("worker should not be running before Start")
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if !w.IsRunning() {
		t.Fatal("worker should be running after Start")
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("second Start returned error: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if w.IsRunning() {
		t.Fatal("worker should not be running after Stop")
	}
	if err := w.Stop(); err != nil {
		t.Fatalf("second Stop returned error: %v", err)
	}
}

func TestTickerTriggersTrim(t *testing.T) {
	store := &fakeTrimStore{}
	w := newTestWorker(store, 10*time.Millisecond)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	deadline := time.After(time.Second)
	for store.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("no trim call within deadline")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := w.Stop(); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
}
