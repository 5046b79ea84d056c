// Package matcher decides whether free text plausibly refers to a project.
package matcher

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ganot/forge-registry/internal/domain/project"
)

// TermType records where a match term came from.
type TermType string

const (
	TermTitle TermType = "title"
	TermSlug  TermType = "slug"
	TermURL   TermType = "url"
	TermSite  TermType = "site"
	TermAlias TermType = "alias"
)

// Term is one lower-cased substring that identifies a project.
type Term struct {
	Text string
	Type TermType
}

const (
	minSegmentLength  = 4
	minSlugLength     = 4
	minRepoNameLength = 8
	minHostLength     = 6
	minAliasLength    = 3
)

// genericHosts never identify a single project.
var genericHosts = map[string]struct{}{
	"github.com":      {},
	"gitlab.com":      {},
	"bitbucket.org":   {},
	"github.io":       {},
	"npmjs.com":       {},
	"pypi.org":        {},
	"crates.io":       {},
	"vercel.app":      {},
	"netlify.app":     {},
	"pages.dev":       {},
	"herokuapp.com":   {},
	"medium.com":      {},
	"substack.com":    {},
	"youtube.com":     {},
	"twitter.com":     {},
	"x.com":           {},
	"linkedin.com":    {},
	"discord.gg":      {},
	"discord.com":     {},
	"linktr.ee":       {},
	"notion.site":     {},
	"docs.google.com": {},
	"huggingface.co":  {},
	"replit.com":      {},
	"codesandbox.io":  {},
	"producthunt.com": {},
}

var titleDelimiters = regexp.MustCompile(`\s*[—–|]\s*`)

var nonSlug = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Slugify lower-cases s and joins its letter and digit runs with hyphens.
func Slugify(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// Terms builds the ordered, de-duplicated match terms for p.
func Terms(p *project.Project) []Term {
	var b termBuilder

	title := strings.ToLower(strings.TrimSpace(p.Title))
	b.add(title, TermTitle)

	var segments []string
	for _, seg := range titleDelimiters.Split(title, -1) {
		seg = strings.TrimSpace(seg)
		if utf8.RuneCountInString(seg) >= minSegmentLength && seg != title {
			segments = append(segments, seg)
			b.add(seg, TermTitle)
		}
	}

	for _, src := range append([]string{title}, segments...) {
		if slug := Slugify(src); slug != src && utf8.RuneCountInString(slug) >= minSlugLength {
			b.add(slug, TermSlug)
		}
	}

	if ref, err := project.ParseRepositoryURL(p.RepositoryURL); err == nil {
		b.add(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(p.RepositoryURL)), "/"), TermURL)
		b.add(strings.ToLower(ref.FullName()), TermURL)
		name := strings.ToLower(ref.Name)
		if utf8.RuneCountInString(name) >= minRepoNameLength {
			b.add(name, TermURL)
			if spaced := strings.NewReplacer("-", " ", "_", " ", ".", " ").Replace(name); spaced != name {
				b.add(spaced, TermURL)
			}
		}
	}

	if p.Snapshot != nil {
		if host := homepageHost(p.Snapshot.Homepage); host != "" {
			b.add(host, TermSite)
		}
	}

	for _, alias := range p.SearchTerms {
		alias = strings.ToLower(strings.TrimSpace(alias))
		if utf8.RuneCountInString(alias) >= minAliasLength {
			b.add(alias, TermAlias)
		}
	}

	return b.terms
}

func homepageHost(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if utf8.RuneCountInString(host) < minHostLength {
		return ""
	}
	if _, generic := genericHosts[host]; generic {
		return ""
	}
	return host
}

type termBuilder struct {
	terms []Term
	seen  map[string]struct{}
}

func (b *termBuilder) add(text string, typ TermType) {
	if text == "" {
		return
	}
	if b.seen == nil {
		b.seen = map[string]struct{}{}
	}
	if _, ok := b.seen[text]; ok {
		return
	}
	b.seen[text] = struct{}{}
	b.terms = append(b.terms, Term{Text: text, Type: typ})
}

// Match reports the first term contained in text.
func Match(text string, terms []Term) (Term, bool) {
	lower := strings.ToLower(text)
	for _, t := range terms {
		if strings.Contains(lower, t.Text) {
			return t, true
		}
	}
	return Term{}, false
}

// Hit is a project matched by a piece of text.
type Hit struct {
	ProjectID string
	Term      Term
}

// Index holds precomputed terms for a set of projects.
type Index struct {
	entries []entry
}

type entry struct {
	projectID string
	terms     []Term
}

// NewIndex computes terms for every project.
func NewIndex(projects []*project.Project) *Index {
	idx := &Index{entries: make([]entry, 0, len(projects))}
	for _, p := range projects {
		idx.entries = append(idx.entries, entry{projectID: p.ID, terms: Terms(p)})
	}
	return idx
}

// Find returns every project text matches, in index order.
func (i *Index) Find(text string) []Hit {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var hits []Hit
	for _, e := range i.entries {
		if t, ok := Match(text, e.terms); ok {
			hits = append(hits, Hit{ProjectID: e.projectID, Term: t})
		}
	}
	return hits
}
