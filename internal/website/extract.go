package website

import (
	"regexp"
	"strings"
)

var urlPattern = regexp.MustCompile("https?://[^\\s<>()\\[\\]\"'`]+")

const trailingPunctuation = ".,;:!?*_~"

// contextWindow is how many characters around a README URL are searched
// for keywords.
const contextWindow = 80

const (
	contextBonus       = 5
	attributionPenalty = 4
)

var contextKeywords = regexp.MustCompile(`\b(demo|live|deployed|try it|hosted at|website|playground|preview)\b`)

var attributionKeywords = regexp.MustCompile(`\b(built by|made by|created by|credits?|powered by|thanks to|inspired by|sponsored by)\b`)

type occurrence struct {
	url        string
	start, end int
}

func findURLs(text string) []occurrence {
	var out []occurrence
	for _, loc := range urlPattern.FindAllStringIndex(text, -1) {
		raw := strings.TrimRight(text[loc[0]:loc[1]], trailingPunctuation)
		if len(raw) <= len("https://") {
			continue
		}
		out = append(out, occurrence{url: raw, start: loc[0], end: loc[0] + len(raw)})
	}
	return out
}

// ExtractURLs returns the distinct http(s) URLs in text in order of
// first appearance.
func ExtractURLs(text string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, occ := range findURLs(text) {
		key := Normalize(occ.url)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, occ.url)
	}
	return out
}

// contextAdjustment scores the text surrounding an occurrence.
func contextAdjustment(text string, occ occurrence) int {
	lo := max(occ.start-contextWindow, 0)
	hi := min(occ.end+contextWindow, len(text))
	window := strings.ToLower(text[lo:occ.start] + " " + text[occ.end:hi])

	adj := 0
	if contextKeywords.MatchString(window) {
		adj += contextBonus
	}
	if attributionKeywords.MatchString(window) {
		adj -= attributionPenalty
	}
	return adj
}
