package website

import (
	"sort"
	"strings"

	"github.com/ganot/forge-registry/internal/domain/project"
)

// Candidate is a possible website for a project.
type Candidate struct {
	URL    string
	Source project.WebsiteSource
	Score  int
}

// FromHomepage returns the repository homepage if it scores above zero.
func FromHomepage(homepage string) []Candidate {
	homepage = strings.TrimSpace(homepage)
	if homepage == "" {
		return nil
	}
	if !strings.Contains(homepage, "://") {
		homepage = "https://" + homepage
	}
	score := Score(homepage)
	if score <= ScoreRejected {
		return nil
	}
	return []Candidate{{URL: homepage, Source: project.SourceHomepage, Score: score}}
}

// FromDescription returns URLs in the repository description scoring at
// least MinScore, best first.
func FromDescription(desc string) []Candidate {
	var out []Candidate
	for _, u := range ExtractURLs(desc) {
		if s := Score(u); s >= MinScore {
			out = append(out, Candidate{URL: u, Source: project.SourceDescription, Score: s})
		}
	}
	sortByScore(out)
	return out
}

// FromReadme returns README URLs adjusted by nearby keywords, keeping those
// at or above MinScore, best first. Each URL keeps its best occurrence.
func FromReadme(readme string) []Candidate {
	best := map[string]Candidate{}
	var order []string
	for _, occ := range findURLs(readme) {
		base := Score(occ.url)
		if base <= ScoreRejected {
			continue
		}
		adjusted := base + contextAdjustment(readme, occ)
		key := Normalize(occ.url)
		cur, seen := best[key]
		if !seen {
			order = append(order, key)
		}
		if !seen || adjusted > cur.Score {
			best[key] = Candidate{URL: occ.url, Source: project.SourceReadme, Score: adjusted}
		}
	}
	var out []Candidate
	for _, key := range order {
		if c := best[key]; c.Score >= MinScore {
			out = append(out, c)
		}
	}
	sortByScore(out)
	return out
}

// FromDeliverables returns scoring deliverable URLs not on selfDomain.
func FromDeliverables(deliverables []project.Deliverable, selfDomain string) []Candidate {
	seen := map[string]struct{}{}
	var out []Candidate
	for _, d := range deliverables {
		if OnDomain(d.URL, selfDomain) {
			continue
		}
		key := Normalize(d.URL)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		if s := Score(d.URL); s > ScoreRejected {
			out = append(out, Candidate{URL: d.URL, Source: project.SourceDeliverable, Score: s})
		}
	}
	sortByScore(out)
	return out
}

// FromMentions ranks URLs found in archived mentions by how often they
// appear, breaking ties on score.
func FromMentions(texts []string, selfDomain string) []Candidate {
	counts := map[string]int{}
	first := map[string]Candidate{}
	var order []string
	for _, text := range texts {
		for _, u := range ExtractURLs(text) {
			if OnDomain(u, selfDomain) {
				continue
			}
			s := Score(u)
			if s <= ScoreRejected {
				continue
			}
			key := Normalize(u)
			if _, ok := first[key]; !ok {
				first[key] = Candidate{URL: u, Source: project.SourceMentions, Score: s}
				order = append(order, key)
			}
			counts[key]++
		}
	}
	out := make([]Candidate, 0, len(order))
	for _, key := range order {
		out = append(out, first[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		ci, cj := counts[Normalize(out[i].URL)], counts[Normalize(out[j].URL)]
		if ci != cj {
			return ci > cj
		}
		return out[i].Score > out[j].Score
	})
	return out
}

func sortByScore(c []Candidate) {
	sort.SliceStable(c, func(i, j int) bool { return c[i].Score > c[j].Score })
}
