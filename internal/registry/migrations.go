package registry

import (
	"strings"
	"time"

	"github.com/ganot/forge-registry/internal/domain/project"
)

// Migration upgrades one project record to a schema version. Up must be
// idempotent.
type Migration struct {
	Version     int
	Description string
	Up          func(p *project.Project, now time.Time)
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "default status and timestamps",
		Up: func(p *project.Project, now time.Time) {
			if p.Status == "" {
				p.Status = project.Derive(p.Snapshot)
			}
			if p.CreatedAt.IsZero() {
				p.CreatedAt = now
			}
			if p.UpdatedAt.IsZero() {
				p.UpdatedAt = p.CreatedAt
			}
		},
	},
	{
		Version:     2,
		Description: "contributors map seeded with founder, leader defaults to founder",
		Up: func(p *project.Project, now time.Time) {
			if p.Contributors == nil {
				p.Contributors = map[string]project.Contributor{}
			}
			p.AddContributor(p.Founder, "founder", p.CreatedAt)
			if p.Leader == nil && p.Founder.ID != "" {
				p.Leader = &project.Leader{Account: p.Founder, AssignedAt: p.CreatedAt, LastActiveAt: p.UpdatedAt}
			}
		},
	},
	{
		Version:     3,
		Description: "recompute reputation from ratings",
		Up: func(p *project.Project, now time.Time) {
			p.RecomputeReputation()
		},
	},
	{
		Version:     4,
		Description: "clamp mention counts and tag unsourced website claims",
		Up: func(p *project.Project, now time.Time) {
			if p.Mentions < 0 {
				p.Mentions = 0
			}
			if p.Website == nil {
				return
			}
			if strings.TrimSpace(p.Website.URL) == "" {
				p.Website = nil
				return
			}
			if p.Website.Source == "" {
				p.Website.Source = project.SourceReadme
				if p.Snapshot != nil && strings.EqualFold(strings.TrimSuffix(p.Snapshot.Homepage, "/"), strings.TrimSuffix(p.Website.URL, "/")) {
					p.Website.Source = project.SourceHomepage
				}
			}
		},
	},
}

// CurrentSchemaVersion is the schema version written by this build.
func CurrentSchemaVersion() int {
	return migrations[len(migrations)-1].Version
}

// Migrate upgrades reg in place and returns the number of steps applied.
// Registries written by a newer schema are left untouched.
func Migrate(reg *project.Registry, now time.Time) int {
	applied := 0
	for _, m := range migrations {
		if m.Version <= reg.SchemaVersion {
			continue
		}
		for _, p := range reg.Projects {
			m.Up(p, now)
		}
		reg.SchemaVersion = m.Version
		applied++
	}
	return applied
}
