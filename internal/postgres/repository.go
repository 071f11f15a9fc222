package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arcade-highscores/internal/config"
	"github.com/arcade-highscores/internal/domain"
)

const dateFormat = "2006-01-02"

// Repository provides PostgreSQL-based data access. It is constructed
// once in main and passed by handle to everything that needs it.
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// Pool returns the underlying connection pool
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS games (
			slug VARCHAR(50) PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			year INT,
			developer VARCHAR(100),
			genre VARCHAR(50),
			description TEXT,
			score_ceiling BIGINT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS high_scores (
			id BIGSERIAL PRIMARY KEY,
			game_slug VARCHAR(50) NOT NULL REFERENCES games(slug),
			player_name VARCHAR(50) NOT NULL,
			score BIGINT NOT NULL,
			level_reached VARCHAR(50),
			date_achieved DATE NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_high_scores_game ON high_scores(game_slug)`,
		`CREATE INDEX IF NOT EXISTS idx_high_scores_score ON high_scores(game_slug, score DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_high_scores_created ON high_scores(created_at DESC)`,
	}

	for _, migration := range migrations {
		_, err := r.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

// EnsureSeeded inserts the catalog games if the games table is empty.
// Seeding an already-populated catalog is a no-op.
func (r *Repository) EnsureSeeded(ctx context.Context, games []domain.Game) error {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM games`).Scan(&count); err != nil {
		return fmt.Errorf("checking game catalog: %w", err)
	}
	if count > 0 {
		r.logger.Debug("game catalog already seeded", "games", count)
		return nil
	}

	query := `
		INSERT INTO games (slug, name, year, developer, genre, description, score_ceiling)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (slug) DO NOTHING
	`
	for _, g := range games {
		_, err := r.pool.Exec(ctx, query,
			g.Slug,
			g.Name,
			g.Year,
			g.Developer,
			g.Genre,
			g.Description,
			g.ScoreCeiling,
		)
		if err != nil {
			return fmt.Errorf("seeding game %s: %w", g.Slug, err)
		}
	}

	r.logger.Info("game catalog seeded", "games", len(games))
	return nil
}

// recordErr maps an insert-path failure onto the submission error
// taxonomy so callers can branch without string matching.
func recordErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" { // foreign_key_violation
		return fmt.Errorf("%s: %w", op, domain.ErrForeignKeyViolation)
	}
	return fmt.Errorf("%s: %w: %v", op, domain.ErrStoreUnavailable, err)
}

// RecordScore persists a validated submission and computes its rank,
// the game's total, and the new-high-score flag inside a single
// transaction. The previous-max read excludes the row just inserted so
// a tie with one's own insert cannot self-declare a new high score.
// Any failure rolls the whole operation back.
func (r *Repository) RecordScore(ctx context.Context, sub domain.Submission) (*domain.SubmissionResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, recordErr("beginning transaction", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now()
	var level any
	if sub.LevelReached != "" {
		level = sub.LevelReached
	}

	var scoreID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO high_scores (game_slug, player_name, score, level_reached, date_achieved, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, sub.GameSlug, sub.PlayerName, sub.Score, level, now, now).Scan(&scoreID)
	if err != nil {
		return nil, recordErr("inserting score", err)
	}

	var rank int64
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) + 1 FROM high_scores
		WHERE game_slug = $1 AND score > $2
	`, sub.GameSlug, sub.Score).Scan(&rank)
	if err != nil {
		return nil, recordErr("computing rank", err)
	}

	var total int64
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM high_scores WHERE game_slug = $1
	`, sub.GameSlug).Scan(&total)
	if err != nil {
		return nil, recordErr("counting scores", err)
	}

	var previousMax *int64
	err = tx.QueryRow(ctx, `
		SELECT MAX(score) FROM high_scores
		WHERE game_slug = $1 AND id <> $2
	`, sub.GameSlug, scoreID).Scan(&previousMax)
	if err != nil {
		return nil, recordErr("checking previous high score", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, recordErr("committing transaction", err)
	}

	return &domain.SubmissionResult{
		ScoreID:        scoreID,
		Rank:           rank,
		TotalScores:    total,
		IsNewHighScore: previousMax == nil || sub.Score > *previousMax,
		PlayerName:     sub.PlayerName,
		Score:          sub.Score,
		FormattedScore: domain.FormatScore(sub.Score),
		Game:           sub.GameSlug,
		Date:           now.Format(dateFormat),
	}, nil
}

// ListScores returns score records ordered by score descending with
// earlier achievement winning ties (insertion order breaks same-day
// ties). An empty slug lists across all games.
func (r *Repository) ListScores(ctx context.Context, gameSlug string, limit, offset int) ([]domain.ScoreRecord, error) {
	query := `
		SELECT id, game_slug, player_name, score, COALESCE(level_reached, ''), date_achieved, created_at
		FROM high_scores
	`
	args := []any{}
	if gameSlug != "" {
		query += ` WHERE game_slug = $1`
		args = append(args, gameSlug)
	}
	query += fmt.Sprintf(`
		ORDER BY score DESC, date_achieved ASC, id ASC
		LIMIT $%d OFFSET $%d
	`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing scores: %w", err)
	}
	defer rows.Close()

	var scores []domain.ScoreRecord
	for rows.Next() {
		var rec domain.ScoreRecord
		var achieved time.Time
		err := rows.Scan(
			&rec.ID,
			&rec.GameSlug,
			&rec.PlayerName,
			&rec.Score,
			&rec.LevelReached,
			&achieved,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning score: %w", err)
		}
		rec.DateAchieved = achieved.Format(dateFormat)
		rec.FormattedScore = domain.FormatScore(rec.Score)
		scores = append(scores, rec)
	}
	return scores, rows.Err()
}

// CountScores returns the number of stored scores, optionally filtered
// by game.
func (r *Repository) CountScores(ctx context.Context, gameSlug string) (int64, error) {
	var count int64
	var err error
	if gameSlug == "" {
		err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM high_scores`).Scan(&count)
	} else {
		err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM high_scores WHERE game_slug = $1`, gameSlug).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("counting scores: %w", err)
	}
	return count, nil
}

// CountPlayers returns the number of distinct player names on record.
func (r *Repository) CountPlayers(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(DISTINCT player_name) FROM high_scores`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting players: %w", err)
	}
	return count, nil
}

// ListGames returns the catalog with per-game high score and score count.
func (r *Repository) ListGames(ctx context.Context) ([]domain.GameSummary, error) {
	query := `
		SELECT
			g.slug, g.name, g.year, g.developer, g.genre, g.description, g.score_ceiling,
			COALESCE(MAX(hs.score), 0) AS high_score,
			COUNT(hs.id) AS score_count
		FROM games g
		LEFT JOIN high_scores hs ON g.slug = hs.game_slug
		GROUP BY g.slug, g.name, g.year, g.developer, g.genre, g.description, g.score_ceiling
		ORDER BY g.name ASC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing games: %w", err)
	}
	defer rows.Close()

	var games []domain.GameSummary
	for rows.Next() {
		var g domain.GameSummary
		err := rows.Scan(
			&g.Slug,
			&g.Name,
			&g.Year,
			&g.Developer,
			&g.Genre,
			&g.Description,
			&g.ScoreCeiling,
			&g.HighScore,
			&g.ScoreCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning game: %w", err)
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

// GameStats returns score statistics for a single game.
func (r *Repository) GameStats(ctx context.Context, gameSlug string) (*domain.GameStats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(MAX(score), 0),
			COALESCE(MIN(score), 0),
			COALESCE(AVG(score), 0)::float8,
			COUNT(DISTINCT player_name)
		FROM high_scores
		WHERE game_slug = $1
	`
	stats := &domain.GameStats{GameSlug: gameSlug}
	err := r.pool.QueryRow(ctx, query, gameSlug).Scan(
		&stats.TotalScores,
		&stats.HighestScore,
		&stats.LowestScore,
		&stats.AverageScore,
		&stats.UniquePlayers,
	)
	if err != nil {
		return nil, fmt.Errorf("getting game stats: %w", err)
	}
	return stats, nil
}

// RecentScores returns the most recently submitted scores across all
// games, newest first.
func (r *Repository) RecentScores(ctx context.Context, limit int) ([]domain.RecentScore, error) {
	query := `
		SELECT hs.player_name, hs.score, COALESCE(hs.level_reached, ''), hs.date_achieved, hs.game_slug, g.name
		FROM high_scores hs
		JOIN games g ON hs.game_slug = g.slug
		ORDER BY hs.created_at DESC, hs.id DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent scores: %w", err)
	}
	defer rows.Close()

	var scores []domain.RecentScore
	for rows.Next() {
		var rec domain.RecentScore
		var achieved time.Time
		err := rows.Scan(
			&rec.PlayerName,
			&rec.Score,
			&rec.LevelReached,
			&achieved,
			&rec.GameSlug,
			&rec.GameName,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning recent score: %w", err)
		}
		rec.DateAchieved = achieved.Format(dateFormat)
		scores = append(scores, rec)
	}
	return scores, rows.Err()
}

// TopPlayers returns the best score per player across all games,
// ordered by best score descending.
func (r *Repository) TopPlayers(ctx context.Context, limit int) ([]domain.PlayerStanding, error) {
	query := `
		SELECT best.player_name, best.score, stats.total_scores, stats.average_score, best.game_slug, g.name
		FROM (
			SELECT DISTINCT ON (player_name) player_name, score, game_slug
			FROM high_scores
			ORDER BY player_name, score DESC, date_achieved ASC, id ASC
		) best
		JOIN games g ON best.game_slug = g.slug
		JOIN (
			SELECT player_name, COUNT(*) AS total_scores, AVG(score)::float8 AS average_score
			FROM high_scores
			GROUP BY player_name
		) stats ON stats.player_name = best.player_name
		ORDER BY best.score DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing top players: %w", err)
	}
	defer rows.Close()

	var standings []domain.PlayerStanding
	for rows.Next() {
		var p domain.PlayerStanding
		err := rows.Scan(
			&p.PlayerName,
			&p.BestScore,
			&p.TotalScores,
			&p.AverageScore,
			&p.GameSlug,
			&p.GameName,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning top player: %w", err)
		}
		standings = append(standings, p)
	}
	return standings, rows.Err()
}

// DeleteBelowTopN removes every score for a game outside its top N by
// display ordering, and returns the number of deleted records.
func (r *Repository) DeleteBelowTopN(ctx context.Context, gameSlug string, keep int) (int64, error) {
	query := `
		DELETE FROM high_scores
		WHERE game_slug = $1
		AND id NOT IN (
			SELECT id FROM high_scores
			WHERE game_slug = $1
			ORDER BY score DESC, date_achieved ASC, id ASC
			LIMIT $2
		)
	`
	result, err := r.pool.Exec(ctx, query, gameSlug, keep)
	if err != nil {
		return 0, fmt.Errorf("trimming scores: %w", err)
	}
	return result.RowsAffected(), nil
}
