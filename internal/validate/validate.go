// Package validate checks submission shape and policy before any store
// I/O. Everything here is side-effect free.
package validate

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/arcade-highscores/internal/domain"
)

const (
	maxNameLength     = 20
	minInitialsLength = 1
	minFullNameLength = 3
)

var (
	tagPattern  = regexp.MustCompile(`<[^>]*>`)
	namePattern = regexp.MustCompile(`^[A-Za-z0-9 \-_.]+$`)
)

// Sanitize trims whitespace, strips markup tags, HTML-escapes the
// remainder and drops null bytes. Length and charset checks run on the
// sanitized value, so an escaped quote fails the charset check rather
// than reaching the store.
func Sanitize(input string) string {
	s := strings.TrimSpace(input)
	s = tagPattern.ReplaceAllString(s, "")
	s = html.EscapeString(s)
	return strings.ReplaceAll(s, "\x00", "")
}

// Submission validates a raw submission against the catalog and returns
// the normalized form. Initials take precedence over player_name; the
// minimum name length is 1 on the initials path and 3 otherwise.
func Submission(catalog *domain.Catalog, input domain.SubmissionInput) (domain.Submission, error) {
	gameSlug := Sanitize(input.GameSlug)
	if gameSlug == "" {
		return domain.Submission{}, fmt.Errorf("%w: game_slug", domain.ErrMissingField)
	}

	if input.Score.IsEmpty() {
		return domain.Submission{}, fmt.Errorf("%w: score", domain.ErrMissingField)
	}

	var playerName string
	minLength := minFullNameLength
	switch {
	case strings.TrimSpace(input.Initials) != "":
		playerName = Sanitize(input.Initials)
		minLength = minInitialsLength
	case strings.TrimSpace(input.PlayerName) != "":
		playerName = Sanitize(input.PlayerName)
	default:
		return domain.Submission{}, fmt.Errorf("%w: either 'initials' or 'player_name'", domain.ErrMissingField)
	}

	ceiling, ok := catalog.Ceiling(gameSlug)
	if !ok {
		return domain.Submission{}, domain.ErrUnknownGame
	}

	if len(playerName) < minLength || len(playerName) > maxNameLength {
		return domain.Submission{}, fmt.Errorf("%w: must be %d-%d characters", domain.ErrInvalidName, minLength, maxNameLength)
	}
	if !namePattern.MatchString(playerName) {
		return domain.Submission{}, fmt.Errorf("%w: only letters, numbers, spaces, hyphens, underscores, and periods are allowed", domain.ErrInvalidName)
	}

	score, err := input.Score.Int64()
	if err != nil || score <= 0 {
		return domain.Submission{}, domain.ErrInvalidScore
	}
	if score > ceiling {
		return domain.Submission{}, domain.ErrScoreCeilingExceeded
	}

	return domain.Submission{
		GameSlug:     gameSlug,
		PlayerName:   playerName,
		Score:        score,
		LevelReached: Sanitize(input.LevelReached),
	}, nil
}
