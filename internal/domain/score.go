package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// ScoreRecord is a single persisted high score. Records are immutable
// after creation; only the retention trim deletes them.
type ScoreRecord struct {
	ID             int64     `json:"id"`
	GameSlug       string    `json:"game_slug"`
	PlayerName     string    `json:"player_name"`
	Score          int64     `json:"score"`
	FormattedScore string    `json:"formatted_score"`
	LevelReached   string    `json:"level_reached,omitempty"`
	DateAchieved   string    `json:"date_achieved"`
	CreatedAt      time.Time `json:"created_at"`
}

// ScoreValue accepts a JSON number or a numeric string, so cabinets
// that report scores as strings still parse.
type ScoreValue struct {
	raw string
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *ScoreValue) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		v.raw = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var unquoted string
		if err := json.Unmarshal(data, &unquoted); err != nil {
			return err
		}
		v.raw = strings.TrimSpace(unquoted)
		return nil
	}
	v.raw = s
	return nil
}

// MarshalJSON implements json.Marshaler.
func (v ScoreValue) MarshalJSON() ([]byte, error) {
	if v.raw == "" {
		return []byte("null"), nil
	}
	if n, err := v.Int64(); err == nil {
		return []byte(strconv.FormatInt(n, 10)), nil
	}
	return json.Marshal(v.raw)
}

// IsEmpty reports whether the value was absent, null, or blank.
func (v ScoreValue) IsEmpty() bool {
	return v.raw == ""
}

// Int64 coerces the value to an integer. Fractional values truncate.
func (v ScoreValue) Int64() (int64, error) {
	if n, err := strconv.ParseInt(v.raw, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(v.raw, 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

// Score builds a ScoreValue from an integer, used by producers and tests.
func Score(n int64) ScoreValue {
	return ScoreValue{raw: strconv.FormatInt(n, 10)}
}

// SubmissionInput is the raw submission body before validation. Initials
// take precedence over PlayerName when both are present.
type SubmissionInput struct {
	GameSlug     string     `json:"game_slug"`
	Score        ScoreValue `json:"score"`
	Initials     string     `json:"initials,omitempty"`
	PlayerName   string     `json:"player_name,omitempty"`
	LevelReached string     `json:"level_reached,omitempty"`
}

// Submission is a validated, sanitized submission ready for the store.
type Submission struct {
	GameSlug     string
	PlayerName   string
	Score        int64
	LevelReached string
}

// SubmissionResult is the outcome of a committed submission transaction.
type SubmissionResult struct {
	ScoreID        int64  `json:"score_id"`
	Rank           int64  `json:"rank"`
	TotalScores    int64  `json:"total_scores"`
	IsNewHighScore bool   `json:"is_new_high_score"`
	PlayerName     string `json:"player_name"`
	Score          int64  `json:"score"`
	FormattedScore string `json:"formatted_score"`
	Game           string `json:"game"`
	Date           string `json:"date"`
}

// Pagination describes the window of a paginated score listing.
type Pagination struct {
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"has_more"`
}

// ScorePage is a page of score records with its pagination window.
type ScorePage struct {
	Scores     []ScoreRecord `json:"scores"`
	Pagination Pagination    `json:"pagination"`
	Game       string        `json:"game,omitempty"`
	Count      int           `json:"count"`
}

// RecentScore is an entry in the recent-submissions feed.
type RecentScore struct {
	PlayerName   string `json:"player_name"`
	Score        int64  `json:"score"`
	LevelReached string `json:"level_reached,omitempty"`
	DateAchieved string `json:"date_achieved"`
	GameSlug     string `json:"game_slug"`
	GameName     string `json:"game_name"`
}

// PlayerStanding is a row in the cross-game top players view.
type PlayerStanding struct {
	PlayerName   string  `json:"player_name"`
	BestScore    int64   `json:"best_score"`
	TotalScores  int64   `json:"total_scores"`
	AverageScore float64 `json:"average_score"`
	GameSlug     string  `json:"game_slug"`
	GameName     string  `json:"game_name"`
}

// FormatScore renders a score with thousands separators for display.
func FormatScore(score int64) string {
	s := strconv.FormatInt(score, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
