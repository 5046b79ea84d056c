package website

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	cases := map[string]int{
		"https://myapp.pages.dev":             ScoreHosting,
		"https://www.myapp.pages.dev/":        ScoreHosting,
		"https://orbit.fly.dev/dashboard":     ScoreHosting,
		"https://user.github.io/proj":         ScoreStaticSite,
		"https://orbit.space":                 ScoreCustomDomain,
		"http://orbit.space/docs":             ScoreCustomDomain,
		"https://github.com/x/y":              ScoreRejected,
		"https://raw.githubusercontent.com/x": ScoreRejected,
		"https://img.shields.io/badge/x":      ScoreRejected,
		"https://vercel.app":                  ScoreRejected,
		"http://192.168.1.10:8080":            ScoreRejected,
		"https://localhost:3000":              ScoreRejected,
		"ftp://files.orbit.space":             ScoreRejected,
		"https://orbit.space/api/v1/items":    ScoreRejected,
		"https://get.orbit.space/install.sh":  ScoreRejected,
		"https://orbit.space/@bob":            ScoreRejected,
		"https://orbit.space/logo.png":        ScoreRejected,
		"not a url":                           ScoreRejected,
	}
	for raw, want := range cases {
		require.Equal(t, want, Score(raw), raw)
	}
}

func TestNormalize(t *testing.T) {
	require.Equal(t, "https://myapp.pages.dev", Normalize("https://MyApp.Pages.dev/"))
	require.Equal(t, "https://x.dev/a", Normalize("https://x.dev/a/#top"))
	require.Equal(t, Normalize("https://x.dev"), Normalize("https://X.DEV/"))
}

func TestOnDomain(t *testing.T) {
	require.True(t, OnDomain("https://forge.example.net/p/1", "forge.example.net"))
	require.True(t, OnDomain("https://api.forge.example.net", "www.forge.example.net"))
	require.False(t, OnDomain("https://notforge.example.net", "forge.example.net"))
	require.False(t, OnDomain("https://forge.example.net", ""))
}

func TestExtractURLs(t *testing.T) {
	text := "see (https://a.dev/x), and https://b.dev. Also https://A.dev/x/ again"
	require.Equal(t, []string{"https://a.dev/x", "https://b.dev"}, ExtractURLs(text))
	require.Empty(t, ExtractURLs("no links here, just http:// noise"))
}
