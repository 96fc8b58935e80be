package helpdesk

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrymomot/helpdesk/pkg/repo"
)

// Article is a knowledge-base entry.
type Article struct {
	repo.Owned
	Title     string `json:"title" db:"title"`
	Body      string `json:"body" db:"body"`
	Category  string `json:"category" db:"category"`
	Published bool   `json:"published" db:"published"`
}

// Validate trims the title and normalizes the category to lowercase.
func (a *Article) Validate() error {
	a.Title = strings.TrimSpace(a.Title)
	if a.Title == "" {
		return fmt.Errorf("%w: title", ErrMissingField)
	}
	a.Category = strings.ToLower(strings.TrimSpace(a.Category))
	return nil
}

// ArticleSchema maps article fields to their storage columns.
var ArticleSchema = repo.Schema[Article]{
	Table: "kb_articles",
	Fields: map[string]func(*Article) any{
		"title":     func(a *Article) any { return a.Title },
		"body":      func(a *Article) any { return a.Body },
		"category":  func(a *Article) any { return a.Category },
		"published": func(a *Article) any { return a.Published },
	},
}

// ArticleFilter holds the optional article list filters.
type ArticleFilter struct {
	Published *bool
	Category  string
}

func (f ArticleFilter) filters() []repo.Filter {
	var out []repo.Filter
	if f.Published != nil {
		out = append(out, repo.Eq("published", *f.Published))
	}
	if c := strings.ToLower(strings.TrimSpace(f.Category)); c != "" {
		out = append(out, repo.Eq("category", c))
	}
	return out
}

// Articles is the tenant-scoped knowledge-base repository.
type Articles struct {
	*repo.Repository[Article, *Article]
}

// NewArticles returns an article repository over b.
func NewArticles(b repo.Backend[Article], opts ...repo.Option) *Articles {
	return &Articles{repo.New[Article](b, opts...)}
}

// Search lists articles matching f ordered by title.
func (r *Articles) Search(ctx context.Context, f ArticleFilter) ([]*Article, error) {
	return r.Find(ctx, repo.Where(f.filters()...).Sort("title", false))
}

// Published lists articles visible to customers.
func (r *Articles) Published(ctx context.Context) ([]*Article, error) {
	yes := true
	return r.Search(ctx, ArticleFilter{Published: &yes})
}

// ByCategory lists articles in category, matched case-insensitively.
func (r *Articles) ByCategory(ctx context.Context, category string) ([]*Article, error) {
	return r.Search(ctx, ArticleFilter{Category: category})
}
