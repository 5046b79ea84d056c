package website

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ganot/forge-registry/internal/domain/project"
)

func urls(c []Candidate) []string {
	out := make([]string, 0, len(c))
	for _, x := range c {
		out = append(out, x.URL)
	}
	return out
}

func TestFromReadme_PrefersDeploymentNearDemo(t *testing.T) {
	readme := "# MyApp\n\nCheck out the demo at https://myapp.pages.dev\n\nSource lives at https://github.com/x/y"

	got := FromReadme(readme)
	require.Len(t, got, 1)
	require.Equal(t, "https://myapp.pages.dev", got[0].URL)
	require.Equal(t, project.SourceReadme, got[0].Source)
	require.Equal(t, ScoreHosting+contextBonus, got[0].Score)
}

func TestFromReadme_AttributionPenalty(t *testing.T) {
	readme := "Theme built by https://studioname.design\n\n" +
		"Lots of unrelated text here to separate the two links from each other completely, " +
		"then some more filler words so the window does not overlap at all.\n\n" +
		"Live demo: https://orbit.space"

	got := FromReadme(readme)
	require.Equal(t, []string{"https://orbit.space"}, urls(got))
	require.Equal(t, ScoreCustomDomain+contextBonus, got[0].Score)
}

func TestFromReadme_KeepsBestOccurrence(t *testing.T) {
	readme := "https://orbit.space\n\n" +
		"Lots of unrelated text here to separate the two links from each other completely, " +
		"then some more filler words so the window does not overlap at all.\n\n" +
		"Try the playground: https://orbit.space/"

	got := FromReadme(readme)
	require.Len(t, got, 1)
	require.Equal(t, ScoreCustomDomain+contextBonus, got[0].Score)
}

func TestFromHomepage(t *testing.T) {
	got := FromHomepage("orbit.space")
	require.Equal(t, []string{"https://orbit.space"}, urls(got))
	require.Equal(t, project.SourceHomepage, got[0].Source)

	require.Empty(t, FromHomepage("https://github.com/x/y"))
	require.Empty(t, FromHomepage("  "))
}

func TestFromDescription(t *testing.T) {
	got := FromDescription("Deployed at https://orbit.netlify.app and mirrored at https://user.github.io/orbit")
	require.Equal(t, []string{"https://orbit.netlify.app"}, urls(got))
}

func TestFromDeliverables_SkipsSelfDomain(t *testing.T) {
	got := FromDeliverables([]project.Deliverable{
		{URL: "https://forge.example.net/projects/1"},
		{URL: "https://github.com/x/y/pull/1"},
		{URL: "https://app.fly.dev"},
		{URL: "https://app.fly.dev/"},
	}, "forge.example.net")
	require.Equal(t, []string{"https://app.fly.dev"}, urls(got))
	require.Equal(t, project.SourceDeliverable, got[0].Source)
}

func TestFromMentions_RanksByFrequency(t *testing.T) {
	got := FromMentions([]string{
		"try https://a.dev",
		"https://b.pages.dev is cool",
		"https://a.dev again",
		"https://github.com/x/y and https://forge.example.net/p",
	}, "forge.example.net")
	require.Equal(t, []string{"https://a.dev", "https://b.pages.dev"}, urls(got))
}
