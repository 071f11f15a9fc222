package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/arcade-highscores/internal/config"
	"github.com/arcade-highscores/internal/domain"
	"github.com/arcade-highscores/internal/service"
	"github.com/arcade-highscores/internal/websocket"
)

type fakeStore struct {
	records []domain.ScoreRecord
	nextID  int64
}

func (f *fakeStore) RecordScore(ctx context.Context, sub domain.Submission) (*domain.SubmissionResult, error) {
	f.nextID++
	now := time.Now()
	rec := domain.ScoreRecord{
		ID:           f.nextID,
		GameSlug:     sub.GameSlug,
		PlayerName:   sub.PlayerName,
		Score:        sub.Score,
		LevelReached: sub.LevelReached,
		DateAchieved: now.Format("2006-01-02"),
		CreatedAt:    now,
	}
	f.records = append(f.records, rec)

	var rank, total int64 = 1, 0
	var previousMax *int64
	for _, r := range f.records {
		if r.GameSlug != sub.GameSlug {
			continue
		}
		total++
		if r.Score > sub.Score {
			rank++
		}
		if r.ID != rec.ID && (previousMax == nil || r.Score > *previousMax) {
			score := r.Score
			previousMax = &score
		}
	}

	return &domain.SubmissionResult{
		ScoreID:        rec.ID,
		Rank:           rank,
		TotalScores:    total,
		IsNewHighScore: previousMax == nil || sub.Score > *previousMax,
		PlayerName:     sub.PlayerName,
		Score:          sub.Score,
		FormattedScore: domain.FormatScore(sub.Score),
		Game:           sub.GameSlug,
		Date:           rec.DateAchieved,
	}, nil
}

func (f *fakeStore) ListScores(ctx context.Context, gameSlug string, limit, offset int) ([]domain.ScoreRecord, error) {
	var matched []domain.ScoreRecord
	for _, r := range f.records {
		if gameSlug == "" || r.GameSlug == gameSlug {
			matched = append(matched, r)
		}
	}
	for i := 1; i < len(matched); i++ {
		for j := i; j > 0 && matched[j].Score > matched[j-1].Score; j-- {
			matched[j], matched[j-1] = matched[j-1], matched[j]
		}
	}
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (f *fakeStore) CountScores(ctx context.Context, gameSlug string) (int64, error) {
	var count int64
	for _, r := range f.records {
		if gameSlug == "" || r.GameSlug == gameSlug {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) CountPlayers(ctx context.Context) (int64, error) {
	names := make(map[string]bool)
	for _, r := range f.records {
		names[r.PlayerName] = true
	}
	return int64(len(names)), nil
}

func (f *fakeStore) ListGames(ctx context.Context) ([]domain.GameSummary, error) {
	return []domain.GameSummary{}, nil
}

func (f *fakeStore) GameStats(ctx context.Context, gameSlug string) (*domain.GameStats, error) {
	return &domain.GameStats{GameSlug: gameSlug}, nil
}

func (f *fakeStore) RecentScores(ctx context.Context, limit int) ([]domain.RecentScore, error) {
	return []domain.RecentScore{}, nil
}

func (f *fakeStore) TopPlayers(ctx context.Context, limit int) ([]domain.PlayerStanding, error) {
	return []domain.PlayerStanding{}, nil
}

func newTestRouter(t *testing.T) (http.Handler, *fakeStore) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	catalog := domain.NewCatalog([]domain.Game{
		{Slug: "pacman", Name: "Pac-Man", ScoreCeiling: 5000000},
		{Slug: "galaga", Name: "Galaga", ScoreCeiling: 3000000},
	})
	store := &fakeStore{}
	svc := service.NewLedgerService(catalog, store, &config.LedgerConfig{
		DefaultLimit: 50,
		MaxLimit:     100,
	}, logger)

	hub := websocket.NewHub(logger)
	go hub.Run()
	t.Cleanup(hub.Stop)

	h := NewHandler(svc, hub, logger)
	return h.Router(), store
}

func doRequest(t *testing.T, router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()

	var resp APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
	return resp
}

func TestSubmitScoreAccepted(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/scores",
		`{"game_slug":"pacman","score":100000,"initials":"AAA"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decodeResponse(t, rec)
	if !resp.Success {
		t.Fatalf("expected success envelope, got error %q", resp.Error)
	}

	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("expected object data, got %T", resp.Data)
	}
	if data["rank"] != float64(1) {
		t.Fatalf("expected rank 1, got %v", data["rank"])
	}
	if data["is_new_high_score"] != true {
		t.Fatalf("expected new high score, got %v", data["is_new_high_score"])
	}
	if data["formatted_score"] != "100,000" {
		t.Fatalf("expected formatted score, got %v", data["formatted_score"])
	}
}

func TestSubmitScoreAcceptsNumericString(t *testing.T) {
	router, store := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/scores",
		`{"game_slug":"pacman","score":"25000","initials":"XYZ"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(store.records) != 1 || store.records[0].Score != 25000 {
		t.Fatalf("expected stored score 25000, got %+v", store.records)
	}
}

func TestSubmitScoreMalformedJSON(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/scores", `{"game_slug":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	resp := decodeResponse(t, rec)
	if resp.Success {
		t.Fatal("expected error envelope")
	}
	if resp.Error != "invalid JSON data" {
		t.Fatalf("unexpected error message %q", resp.Error)
	}
}

func TestSubmitScoreValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "unknown game",
			body: `{"game_slug":"tetris","score":100,"initials":"AAA"}`,
			want: "invalid game slug",
		},
		{
			name: "ceiling exceeded",
			body: `{"game_slug":"galaga","score":6000000,"initials":"AAA"}`,
			want: "exceeds",
		},
		{
			name: "missing score",
			body: `{"game_slug":"pacman","initials":"AAA"}`,
			want: "missing required field",
		},
		{
			name: "invalid name characters",
			body: `{"game_slug":"pacman","score":100,"initials":"A!A"}`,
			want: "invalid player name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, store := newTestRouter(t)

			rec := doRequest(t, router, http.MethodPost, "/api/v1/scores", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}

			resp := decodeResponse(t, rec)
			if resp.Success {
				t.Fatal("expected error envelope")
			}
			if !strings.Contains(resp.Error, tt.want) {
				t.Fatalf("expected error containing %q, got %q", tt.want, resp.Error)
			}
			if len(store.records) != 0 {
				t.Fatalf("rejected submission must not be stored, found %d", len(store.records))
			}
		})
	}
}

func TestGetScoresEnvelope(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, body := range []string{
		`{"game_slug":"pacman","score":100000,"initials":"AAA"}`,
		`{"game_slug":"pacman","score":50000,"initials":"BBB"}`,
		`{"game_slug":"galaga","score":70000,"initials":"CCC"}`,
	} {
		rec := doRequest(t, router, http.MethodPost, "/api/v1/scores", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("seed submission failed: %d %s", rec.Code, rec.Body.String())
		}
	}

	rec := doRequest(t, router, http.MethodGet, "/api/v1/scores?game=pacman&limit=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	resp := decodeResponse(t, rec)
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("expected object data, got %T", resp.Data)
	}
	scores, ok := data["scores"].([]interface{})
	if !ok || len(scores) != 1 {
		t.Fatalf("expected 1 score, got %v", data["scores"])
	}
	pagination, ok := data["pagination"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected pagination object, got %v", data["pagination"])
	}
	if pagination["total"] != float64(2) {
		t.Fatalf("expected total 2, got %v", pagination["total"])
	}
	if pagination["has_more"] != true {
		t.Fatalf("expected has_more, got %v", pagination["has_more"])
	}
}

func TestGetScoresUnknownGameRejected(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/scores?game=tetris", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Success {
		t.Fatal("expected error envelope")
	}
}

func TestGetGameScoresByPath(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/scores",
		`{"game_slug":"galaga","score":12345,"initials":"ZZZ"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("seed submission failed: %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/v1/games/galaga/scores", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	if data["game"] != "galaga" {
		t.Fatalf("expected game galaga, got %v", data["game"])
	}
	if data["count"] != float64(1) {
		t.Fatalf("expected count 1, got %v", data["count"])
	}
}

func TestGetScoresIsIdempotent(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/scores",
		`{"game_slug":"pacman","score":100000,"initials":"AAA"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("seed submission failed: %d", rec.Code)
	}

	first := doRequest(t, router, http.MethodGet, "/api/v1/scores?game=pacman", "")
	second := doRequest(t, router, http.MethodGet, "/api/v1/scores?game=pacman", "")
	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("expected 200s, got %d and %d", first.Code, second.Code)
	}
	if !bytes.Equal(first.Body.Bytes(), second.Body.Bytes()) {
		t.Fatal("identical reads must return identical responses")
	}
}

func TestMethodNotAllowedIsJSON(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodDelete, "/api/v1/scores", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}

	resp := decodeResponse(t, rec)
	if resp.Success {
		t.Fatal("expected error envelope")
	}
	if resp.Error != "method not allowed" {
		t.Fatalf("unexpected error %q", resp.Error)
	}
}

func TestPreflightReturnsNoContent(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodOptions, "/api/v1/scores", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected CORS origin header, got %q", got)
	}
}

func TestHealthAndReady(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, path := range []string{"/health", "/ready"} {
		rec := doRequest(t, router, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
		resp := decodeResponse(t, rec)
		if !resp.Success {
			t.Fatalf("%s: expected success envelope", path)
		}
	}
}
