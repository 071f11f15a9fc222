package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestScoreValueUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		empty   bool
		want    int64
	}{
		{name: "number", payload: `{"score":100000}`, want: 100000},
		{name: "numeric string", payload: `{"score":"25000"}`, want: 25000},
		{name: "padded string", payload: `{"score":" 300 "}`, want: 300},
		{name: "float truncates", payload: `{"score":99.9}`, want: 99},
		{name: "null", payload: `{"score":null}`, empty: true},
		{name: "empty string", payload: `{"score":""}`, empty: true},
		{name: "absent", payload: `{}`, empty: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var input SubmissionInput
			if err := json.Unmarshal([]byte(tt.payload), &input); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if input.Score.IsEmpty() != tt.empty {
				t.Fatalf("IsEmpty() = %v, want %v", input.Score.IsEmpty(), tt.empty)
			}
			if tt.empty {
				return
			}
			n, err := input.Score.Int64()
			if err != nil {
				t.Fatalf("Int64: %v", err)
			}
			if n != tt.want {
				t.Fatalf("Int64() = %d, want %d", n, tt.want)
			}
		})
	}
}

func TestScoreValueNonNumeric(t *testing.T) {
	var input SubmissionInput
	if err := json.Unmarshal([]byte(`{"score":"lots"}`), &input); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if input.Score.IsEmpty() {
		t.Fatal("non-numeric string is present, not empty")
	}
	if _, err := input.Score.Int64(); err == nil {
		t.Fatal("expected coercion error for non-numeric string")
	}
}

func TestFormatScore(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{7, "7"},
		{999, "999"},
		{1000, "1,000"},
		{100000, "100,000"},
		{1234567, "1,234,567"},
		{10000000, "10,000,000"},
	}
	for _, tt := range tests {
		if got := FormatScore(tt.in); got != tt.want {
			t.Fatalf("FormatScore(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCatalogLookup(t *testing.T) {
	catalog := NewCatalog([]Game{
		{Slug: "pacman", Name: "Pac-Man", ScoreCeiling: 5000000},
		{Slug: "galaga", Name: "Galaga", ScoreCeiling: 3000000},
	})

	if catalog.Len() != 2 {
		t.Fatalf("expected 2 games, got %d", catalog.Len())
	}

	g, ok := catalog.Get("pacman")
	if !ok || g.Name != "Pac-Man" {
		t.Fatalf("expected Pac-Man, got %+v (ok=%v)", g, ok)
	}
	if _, ok := catalog.Get("tetris"); ok {
		t.Fatal("unexpected hit for unknown slug")
	}

	ceiling, ok := catalog.Ceiling("galaga")
	if !ok || ceiling != 3000000 {
		t.Fatalf("expected ceiling 3000000, got %d (ok=%v)", ceiling, ok)
	}

	games := catalog.Games()
	if len(games) != 2 || games[0].Slug != "pacman" || games[1].Slug != "galaga" {
		t.Fatalf("expected insertion order preserved, got %+v", games)
	}
}

func TestSubmissionErrorUnwrap(t *testing.T) {
	err := &SubmissionError{Cause: ErrScoreCeilingExceeded}

	if !errors.Is(err, ErrScoreCeilingExceeded) {
		t.Fatal("expected errors.Is to see the cause through the wrapper")
	}
	if err.Error() == "" {
		t.Fatal("expected non-empty message")
	}
}

func TestIsValidationError(t *testing.T) {
	validation := []error{
		ErrMissingField,
		ErrUnknownGame,
		ErrInvalidName,
		ErrInvalidScore,
		ErrScoreCeilingExceeded,
	}
	for _, err := range validation {
		if !IsValidationError(err) {
			t.Fatalf("expected %v to be a validation error", err)
		}
		if !IsValidationError(&SubmissionError{Cause: err}) {
			t.Fatalf("expected wrapped %v to be a validation error", err)
		}
	}

	if IsValidationError(ErrStoreUnavailable) {
		t.Fatal("store errors are not validation errors")
	}
	if IsValidationError(ErrForeignKeyViolation) {
		t.Fatal("foreign key violations are store-side, not validation")
	}
}

func TestIsStoreError(t *testing.T) {
	if !IsStoreError(ErrStoreUnavailable) {
		t.Fatal("expected ErrStoreUnavailable to be a store error")
	}
	if !IsStoreError(&SubmissionError{Cause: ErrForeignKeyViolation}) {
		t.Fatal("expected wrapped ErrForeignKeyViolation to be a store error")
	}
	if IsStoreError(ErrInvalidScore) {
		t.Fatal("validation errors are not store errors")
	}
}
