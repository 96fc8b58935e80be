package organization

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/helpdesk/pkg/secrets"
)

// Seed describes one organization in a provisioning file:
//
//	organizations:
//	  - name: Acme Inc
//	    slug: acme
//	    custom_domain: support.acme.test
//	    settings: {timezone: UTC}
//	    api_key: sk_live_123
type Seed struct {
	Name         string         `yaml:"name"`
	Slug         string         `yaml:"slug"`
	CustomDomain string         `yaml:"custom_domain"`
	Active       *bool          `yaml:"active"`
	Settings     map[string]any `yaml:"settings"`
	APIKey       string         `yaml:"api_key"`
	MailUsername string         `yaml:"mail_username"`
	MailPassword string         `yaml:"mail_password"`
}

type seedFile struct {
	Organizations []Seed `yaml:"organizations"`
}

// LoadSeeds parses a YAML provisioning file.
func LoadSeeds(r io.Reader) ([]Seed, error) {
	var f seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	return f.Organizations, nil
}

// Organization builds the organization described by the seed, sealing its
// secrets when a sealer is given.
func (s Seed) Organization(sealer *secrets.Sealer) (*Organization, error) {
	slug := s.Slug
	if strings.TrimSpace(slug) == "" {
		slug = DeriveSlug(s.Name)
	}
	org := New(s.Name, slug)
	org.CustomDomain = s.CustomDomain
	if s.Active != nil {
		org.Active = *s.Active
	}
	if s.Settings != nil {
		org.Settings = s.Settings
	}
	if err := org.Validate(); err != nil {
		return nil, err
	}

	plain := PlainSecrets{APIKey: s.APIKey, MailUsername: s.MailUsername, MailPassword: s.MailPassword}
	if plain != (PlainSecrets{}) {
		if sealer == nil {
			return nil, fmt.Errorf("seed %q carries secrets but no app key is configured", s.Slug)
		}
		if err := org.SealSecrets(sealer, plain); err != nil {
			return nil, err
		}
	}
	return org, nil
}

// ApplySeeds creates every seeded organization whose slug is not taken yet.
// It returns the number of organizations created.
func ApplySeeds(ctx context.Context, store Store, sealer *secrets.Sealer, seeds []Seed) (int, error) {
	created := 0
	for _, s := range seeds {
		org, err := s.Organization(sealer)
		if err != nil {
			return created, fmt.Errorf("seed %q: %w", s.Slug, err)
		}
		switch _, err := store.FindBySlug(ctx, org.Slug); {
		case err == nil:
			continue
		case !errors.Is(err, ErrNotFound):
			return created, fmt.Errorf("seed %q: %w", org.Slug, err)
		}
		switch err := store.Create(ctx, org); {
		case errors.Is(err, ErrSlugTaken):
			continue
		case err != nil:
			return created, fmt.Errorf("seed %q: %w", s.Slug, err)
		}
		created++
	}
	return created, nil
}
