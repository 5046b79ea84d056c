package website

import (
	"time"

	"github.com/ganot/forge-registry/internal/domain/project"
)

// Reasons a claim is cleared.
const (
	ReasonRejected  = "rejected"
	ReasonDisplaced = "displaced"
	ReasonDuplicate = "duplicate"
)

// Change is a claim assigned to or cleared from a project.
type Change struct {
	ProjectID string
	URL       string
	Source    project.WebsiteSource
	Cleared   bool
	Reason    string
}

// Arbiter keeps website claims unique across a set of projects. It mutates
// the projects it was built from.
type Arbiter struct {
	byID    map[string]*project.Project
	holders map[string]string
	order   []*project.Project
}

// NewArbiter indexes the current claims of projects.
func NewArbiter(projects []*project.Project) *Arbiter {
	a := &Arbiter{
		byID:    make(map[string]*project.Project, len(projects)),
		holders: map[string]string{},
		order:   projects,
	}
	for _, p := range projects {
		a.byID[p.ID] = p
	}
	a.reindex()
	return a
}

func (a *Arbiter) reindex() {
	a.holders = map[string]string{}
	for _, p := range a.order {
		if p.Website == nil {
			continue
		}
		key := Normalize(p.Website.URL)
		if _, taken := a.holders[key]; !taken {
			a.holders[key] = p.ID
		}
	}
}

// Revalidate clears claims whose URL now scores zero, non-homepage claims on
// a URL another project holds via its homepage, and any remaining duplicates
// after the first holder.
func (a *Arbiter) Revalidate() []Change {
	var changes []Change
	clear := func(p *project.Project, reason string) {
		changes = append(changes, Change{
			ProjectID: p.ID,
			URL:       p.Website.URL,
			Source:    p.Website.Source,
			Cleared:   true,
			Reason:    reason,
		})
		p.Website = nil
	}

	for _, p := range a.order {
		if p.Website != nil && Score(p.Website.URL) <= ScoreRejected {
			clear(p, ReasonRejected)
		}
	}

	homepageHolder := map[string]string{}
	for _, p := range a.order {
		if p.Website == nil || p.Website.Source != project.SourceHomepage {
			continue
		}
		key := Normalize(p.Website.URL)
		if _, ok := homepageHolder[key]; !ok {
			homepageHolder[key] = p.ID
		}
	}
	for _, p := range a.order {
		if p.Website == nil || p.Website.Source == project.SourceHomepage {
			continue
		}
		if holder, ok := homepageHolder[Normalize(p.Website.URL)]; ok && holder != p.ID {
			clear(p, ReasonDisplaced)
		}
	}

	owner := map[string]string{}
	for key, id := range homepageHolder {
		owner[key] = id
	}
	for _, p := range a.order {
		if p.Website == nil {
			continue
		}
		key := Normalize(p.Website.URL)
		if id, ok := owner[key]; ok && id != p.ID {
			clear(p, ReasonDuplicate)
			continue
		}
		owner[key] = p.ID
	}

	a.reindex()
	return changes
}

// Claim assigns the first candidate not held by another project. A homepage
// candidate displaces a weaker claim held elsewhere. It returns the changes
// made, with the assignment last, or nil if no candidate could be claimed.
func (a *Arbiter) Claim(p *project.Project, candidates []Candidate, now time.Time) []Change {
	for _, cand := range candidates {
		key := Normalize(cand.URL)
		var changes []Change
		if holderID, held := a.holders[key]; held && holderID != p.ID {
			holder := a.byID[holderID]
			if cand.Source != project.SourceHomepage || holder.Website.Source == project.SourceHomepage {
				continue
			}
			changes = append(changes, Change{
				ProjectID: holder.ID,
				URL:       holder.Website.URL,
				Source:    holder.Website.Source,
				Cleared:   true,
				Reason:    ReasonDisplaced,
			})
			holder.Website = nil
		}
		if p.Website != nil {
			delete(a.holders, Normalize(p.Website.URL))
		}
		p.Website = &project.WebsiteClaim{URL: cand.URL, Source: cand.Source, DiscoveredAt: now}
		a.holders[key] = p.ID
		return append(changes, Change{ProjectID: p.ID, URL: cand.URL, Source: cand.Source})
	}
	return nil
}

// Unique reports whether no two projects hold the same website.
func Unique(projects []*project.Project) bool {
	seen := map[string]struct{}{}
	for _, p := range projects {
		if p.Website == nil {
			continue
		}
		key := Normalize(p.Website.URL)
		if _, ok := seen[key]; ok {
			return false
		}
		seen[key] = struct{}{}
	}
	return true
}
