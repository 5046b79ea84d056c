package project

import (
	"fmt"
	"math"
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	MaxTitleLength       = 140
	MaxDescriptionLength = 2000
	MaxReviewLength      = 280
	MaxGoalLength        = 140
	MaxSearchTerms       = 20
)

func validateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return fmt.Errorf("%w: title exceeds %d characters", ErrInvalidInput, MaxTitleLength)
	}
	return nil
}

func validateDescription(desc string) error {
	if utf8.RuneCountInString(desc) > MaxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidInput, MaxDescriptionLength)
	}
	return nil
}

func validateScore(score int, review string) error {
	if score < 1 || score > 5 {
		return fmt.Errorf("%w: score must be between 1 and 5", ErrInvalidInput)
	}
	if utf8.RuneCountInString(review) > MaxReviewLength {
		return fmt.Errorf("%w: review exceeds %d characters", ErrInvalidInput, MaxReviewLength)
	}
	return nil
}

func validateGoal(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("%w: goal title is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(title) > MaxGoalLength {
		return fmt.Errorf("%w: goal exceeds %d characters", ErrInvalidInput, MaxGoalLength)
	}
	return nil
}

func validateWebURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q is not an http(s) url", ErrInvalidInput, raw)
	}
	return nil
}

func normalizeSearchTerms(terms []string) ([]string, error) {
	if len(terms) > MaxSearchTerms {
		return nil, fmt.Errorf("%w: at most %d search terms", ErrInvalidInput, MaxSearchTerms)
	}
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
