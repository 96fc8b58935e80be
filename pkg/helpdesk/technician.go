package helpdesk

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dmitrymomot/helpdesk/pkg/repo"
)

// Technician is a member of an organization's support staff.
type Technician struct {
	repo.Owned
	Name      string   `json:"name" db:"name"`
	Email     string   `json:"email" db:"email"`
	Skills    []string `json:"skills" db:"skills"`
	Available bool     `json:"available" db:"available"`
}

// Validate trims the name and normalizes skills to a sorted lowercase set.
func (t *Technician) Validate() error {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return fmt.Errorf("%w: name", ErrMissingField)
	}
	skills := make([]string, 0, len(t.Skills))
	for _, s := range t.Skills {
		if s = normalizeSkill(s); s != "" {
			skills = append(skills, s)
		}
	}
	slices.Sort(skills)
	t.Skills = slices.Compact(skills)
	return nil
}

func normalizeSkill(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// TechnicianSchema maps technician fields to their storage columns.
var TechnicianSchema = repo.Schema[Technician]{
	Table: "technicians",
	Fields: map[string]func(*Technician) any{
		"name":      func(t *Technician) any { return t.Name },
		"email":     func(t *Technician) any { return t.Email },
		"skills":    func(t *Technician) any { return t.Skills },
		"available": func(t *Technician) any { return t.Available },
	},
}

// TechnicianFilter holds the optional technician list filters.
type TechnicianFilter struct {
	// Available filters on availability when non-nil.
	Available *bool
	Skill     string
}

func (f TechnicianFilter) filters() []repo.Filter {
	var out []repo.Filter
	if f.Available != nil {
		out = append(out, repo.Eq("available", *f.Available))
	}
	if s := normalizeSkill(f.Skill); s != "" {
		out = append(out, repo.Contains("skills", s))
	}
	return out
}

// Technicians is the tenant-scoped technician repository.
type Technicians struct {
	*repo.Repository[Technician, *Technician]
}

// NewTechnicians returns a technician repository over b.
func NewTechnicians(b repo.Backend[Technician], opts ...repo.Option) *Technicians {
	return &Technicians{repo.New[Technician](b, opts...)}
}

// Search lists technicians matching f ordered by name.
func (r *Technicians) Search(ctx context.Context, f TechnicianFilter) ([]*Technician, error) {
	return r.Find(ctx, repo.Where(f.filters()...).Sort("name", false))
}

// Available lists technicians who can take new work.
func (r *Technicians) Available(ctx context.Context) ([]*Technician, error) {
	yes := true
	return r.Search(ctx, TechnicianFilter{Available: &yes})
}

// WithSkill lists technicians having skill, matched case-insensitively.
func (r *Technicians) WithSkill(ctx context.Context, skill string) ([]*Technician, error) {
	return r.Search(ctx, TechnicianFilter{Skill: skill})
}
