package domain

import "time"

// Game is an immutable catalog entry. The catalog is fixed at startup;
// nothing mutates it through the public API.
type Game struct {
	Slug         string    `json:"slug"`
	Name         string    `json:"name"`
	Year         int       `json:"year"`
	Developer    string    `json:"developer"`
	Genre        string    `json:"genre"`
	Description  string    `json:"description"`
	ScoreCeiling int64     `json:"score_ceiling"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

// Catalog is the fixed set of valid games, keyed by slug. Validation
// consults it in memory so the validation layer does no I/O.
type Catalog struct {
	games map[string]Game
	order []string
}

// NewCatalog builds a catalog from seed entries, preserving their order.
func NewCatalog(games []Game) *Catalog {
	c := &Catalog{games: make(map[string]Game, len(games))}
	for _, g := range games {
		if _, ok := c.games[g.Slug]; ok {
			continue
		}
		c.games[g.Slug] = g
		c.order = append(c.order, g.Slug)
	}
	return c
}

// Get returns the catalog entry for a slug.
func (c *Catalog) Get(slug string) (Game, bool) {
	g, ok := c.games[slug]
	return g, ok
}

// Ceiling returns the anti-cheat score ceiling for a game.
func (c *Catalog) Ceiling(slug string) (int64, bool) {
	g, ok := c.games[slug]
	return g.ScoreCeiling, ok
}

// Games returns all catalog entries in seed order.
func (c *Catalog) Games() []Game {
	out := make([]Game, 0, len(c.order))
	for _, slug := range c.order {
		out = append(out, c.games[slug])
	}
	return out
}

// Len returns the number of games in the catalog.
func (c *Catalog) Len() int {
	return len(c.order)
}

// GameSummary is a catalog entry with its score aggregates, used by the
// game list view.
type GameSummary struct {
	Game
	HighScore  int64 `json:"high_score"`
	ScoreCount int64 `json:"score_count"`
}

// GameStats contains per-game score statistics.
type GameStats struct {
	GameSlug      string  `json:"game_slug"`
	TotalScores   int64   `json:"total_scores"`
	HighestScore  int64   `json:"highest_score"`
	LowestScore   int64   `json:"lowest_score"`
	AverageScore  float64 `json:"average_score"`
	UniquePlayers int64   `json:"unique_players"`
}
