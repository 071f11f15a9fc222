package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/arcade-highscores/internal/config"
	"github.com/arcade-highscores/internal/domain"
	"github.com/arcade-highscores/internal/validate"
)

// Store is the durable score store consumed by the ledger service.
type Store interface {
	RecordScore(ctx context.Context, sub domain.Submission) (*domain.SubmissionResult, error)
	ListScores(ctx context.Context, gameSlug string, limit, offset int) ([]domain.ScoreRecord, error)
	CountScores(ctx context.Context, gameSlug string) (int64, error)
	CountPlayers(ctx context.Context) (int64, error)
	ListGames(ctx context.Context) ([]domain.GameSummary, error)
	GameStats(ctx context.Context, gameSlug string) (*domain.GameStats, error)
	RecentScores(ctx context.Context, limit int) ([]domain.RecentScore, error)
	TopPlayers(ctx context.Context, limit int) ([]domain.PlayerStanding, error)
}

// RecentFeed is the cache backing the recent-submissions view.
type RecentFeed interface {
	Push(ctx context.Context, entry domain.RecentScore) error
	Recent(ctx context.Context, limit int) ([]domain.RecentScore, error)
}

// Broadcaster announces accepted scores to spectators.
type Broadcaster interface {
	BroadcastScoreAccepted(result *domain.SubmissionResult)
}

// Totals are the ledger-wide score and player counts.
type Totals struct {
	TotalScores  int64 `json:"total_scores"`
	TotalPlayers int64 `json:"total_players"`
}

// LedgerService provides business logic for score submissions and
// ranking queries.
type LedgerService struct {
	catalog *domain.Catalog
	store   Store
	feed    RecentFeed
	hub     Broadcaster
	config  *config.LedgerConfig
	logger  *slog.Logger
}

// NewLedgerService creates a new ledger service
func NewLedgerService(
	catalog *domain.Catalog,
	store Store,
	cfg *config.LedgerConfig,
	logger *slog.Logger,
) *LedgerService {
	return &LedgerService{
		catalog: catalog,
		store:   store,
		config:  cfg,
		logger:  logger,
	}
}

// SetFeed sets the recent-feed cache for accepted submissions
func (s *LedgerService) SetFeed(feed RecentFeed) {
	s.feed = feed
}

// SetHub sets the broadcaster for accepted submissions
func (s *LedgerService) SetHub(hub Broadcaster) {
	s.hub = hub
}

// Catalog returns the fixed game catalog.
func (s *LedgerService) Catalog() *domain.Catalog {
	return s.catalog
}

// SubmitScore validates a submission and records it transactionally.
// On success the result carries the record's rank, the game's total and
// the new-high-score flag, all from the committed snapshot. Failures are
// wrapped in a SubmissionError carrying the cause; no retry is attempted.
func (s *LedgerService) SubmitScore(ctx context.Context, input domain.SubmissionInput) (*domain.SubmissionResult, error) {
	sub, err := validate.Submission(s.catalog, input)
	if err != nil {
		return nil, &domain.SubmissionError{Cause: err}
	}

	result, err := s.store.RecordScore(ctx, sub)
	if err != nil {
		return nil, &domain.SubmissionError{Cause: err}
	}

	s.logger.Info("score recorded",
		"game", result.Game,
		"player", result.PlayerName,
		"score", result.Score,
		"rank", result.Rank,
		"new_high_score", result.IsNewHighScore,
	)

	// Cache and broadcast are derived views; their failure never fails
	// the committed submission.
	if s.feed != nil {
		entry := domain.RecentScore{
			PlayerName:   result.PlayerName,
			Score:        result.Score,
			LevelReached: sub.LevelReached,
			DateAchieved: result.Date,
			GameSlug:     result.Game,
		}
		if g, ok := s.catalog.Get(result.Game); ok {
			entry.GameName = g.Name
		}
		if err := s.feed.Push(ctx, entry); err != nil {
			s.logger.Warn("failed to push recent-feed entry", "error", err)
		}
	}

	if s.hub != nil {
		s.hub.BroadcastScoreAccepted(result)
	}

	return result, nil
}

// GetScores returns a page of scores, optionally filtered by game,
// ordered by score descending with earlier achievement winning ties.
// The limit is clamped to the configured maximum.
func (s *LedgerService) GetScores(ctx context.Context, gameSlug string, limit, offset int) (*domain.ScorePage, error) {
	if gameSlug != "" {
		if _, ok := s.catalog.Get(gameSlug); !ok {
			return nil, domain.ErrUnknownGame
		}
	}

	if limit <= 0 {
		limit = s.config.DefaultLimit
	}
	if limit > s.config.MaxLimit {
		limit = s.config.MaxLimit
	}
	if offset < 0 {
		offset = 0
	}

	scores, err := s.store.ListScores(ctx, gameSlug, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing scores: %w", err)
	}
	if scores == nil {
		scores = []domain.ScoreRecord{}
	}

	total, err := s.store.CountScores(ctx, gameSlug)
	if err != nil {
		return nil, fmt.Errorf("counting scores: %w", err)
	}

	return &domain.ScorePage{
		Scores: scores,
		Pagination: domain.Pagination{
			Total:   total,
			Limit:   limit,
			Offset:  offset,
			HasMore: int64(offset+limit) < total,
		},
		Game:  gameSlug,
		Count: len(scores),
	}, nil
}

// Games returns the catalog with per-game high score and score count.
func (s *LedgerService) Games(ctx context.Context) ([]domain.GameSummary, error) {
	return s.store.ListGames(ctx)
}

// Game returns the catalog entry for a slug.
func (s *LedgerService) Game(gameSlug string) (domain.Game, bool) {
	return s.catalog.Get(gameSlug)
}

// GameStats returns score statistics for a game.
func (s *LedgerService) GameStats(ctx context.Context, gameSlug string) (*domain.GameStats, error) {
	if _, ok := s.catalog.Get(gameSlug); !ok {
		return nil, domain.ErrUnknownGame
	}
	return s.store.GameStats(ctx, gameSlug)
}

// RecentScores returns the most recently accepted submissions, newest
// first, serving from the feed cache when it has entries.
func (s *LedgerService) RecentScores(ctx context.Context, limit int) ([]domain.RecentScore, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > s.config.MaxLimit {
		limit = s.config.MaxLimit
	}

	if s.feed != nil {
		entries, err := s.feed.Recent(ctx, limit)
		if err != nil {
			s.logger.Warn("recent-feed cache read failed, falling back to store", "error", err)
		} else if len(entries) > 0 {
			return entries, nil
		}
	}

	entries, err := s.store.RecentScores(ctx, limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []domain.RecentScore{}
	}
	return entries, nil
}

// TopPlayers returns the best score per player across all games.
func (s *LedgerService) TopPlayers(ctx context.Context, limit int) ([]domain.PlayerStanding, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > s.config.MaxLimit {
		limit = s.config.MaxLimit
	}
	standings, err := s.store.TopPlayers(ctx, limit)
	if err != nil {
		return nil, err
	}
	if standings == nil {
		standings = []domain.PlayerStanding{}
	}
	return standings, nil
}

// GlobalTotals returns ledger-wide score and player counts.
func (s *LedgerService) GlobalTotals(ctx context.Context) (*Totals, error) {
	scores, err := s.store.CountScores(ctx, "")
	if err != nil {
		return nil, err
	}
	players, err := s.store.CountPlayers(ctx)
	if err != nil {
		return nil, err
	}
	return &Totals{TotalScores: scores, TotalPlayers: players}, nil
}
