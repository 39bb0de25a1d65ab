package users

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/odyssey-erp/listgrid/internal/grid"
	"github.com/odyssey-erp/listgrid/internal/platform/cache"
)

// minTermLength matches the change owner modal: shorter input never searches.
const minTermLength = 2

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	SearchActive(ctx context.Context, term string) ([]User, error)
}

// Directory searches candidate owners. It implements grid.UserSearcher.
type Directory struct {
	repo   RepositoryPort
	cache  *cache.Versioned
	logger *slog.Logger
}

// NewDirectory builds a Directory. A nil cache searches the repository on
// every call.
func NewDirectory(repo RepositoryPort, c *cache.Versioned, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Directory{repo: repo, cache: c, logger: logger}
}

// Search returns active users matching term, closest names first.
func (d *Directory) Search(ctx context.Context, term string) ([]User, error) {
	term = strings.TrimSpace(term)
	if utf8.RuneCountInString(term) < minTermLength {
		return []User{}, nil
	}
	needle := strings.ToLower(term)
	key, err := d.cache.BuildKey(ctx, "search", needle)
	if err != nil {
		d.logger.Warn("user cache unavailable", slog.Any("error", err))
		return d.load(ctx, term, needle)
	}
	var users []User
	err = d.cache.FetchJSON(ctx, key, &users, func(ctx context.Context) (any, error) {
		return d.load(ctx, term, needle)
	})
	if err != nil {
		return nil, fmt.Errorf("users: search %q: %w", term, err)
	}
	if users == nil {
		users = []User{}
	}
	return users, nil
}

func (d *Directory) load(ctx context.Context, term, needle string) ([]User, error) {
	users, err := d.repo.SearchActive(ctx, term)
	if err != nil {
		return nil, err
	}
	rank(users, needle)
	return users, nil
}

// SearchUsers implements grid.UserSearcher.
func (d *Directory) SearchUsers(ctx context.Context, term string) ([]grid.UserCandidate, error) {
	users, err := d.Search(ctx, term)
	if err != nil {
		return nil, err
	}
	out := make([]grid.UserCandidate, len(users))
	for i, u := range users {
		out[i] = u.Candidate()
	}
	return out, nil
}

// Invalidate drops every cached search, e.g. after user provisioning.
func (d *Directory) Invalidate(ctx context.Context) error {
	return d.cache.Bump(ctx)
}

// rank orders users by prefix match, then by edit distance between the
// lower-cased name and needle, then by name.
func rank(users []User, needle string) {
	type scored struct {
		prefix bool
		dist   int
	}
	scores := make(map[string]scored, len(users))
	for _, u := range users {
		name := strings.ToLower(u.Name)
		scores[u.ID] = scored{
			prefix: strings.HasPrefix(name, needle) || strings.HasPrefix(strings.ToLower(u.Email), needle),
			dist:   levenshtein.ComputeDistance(name, needle),
		}
	}
	sort.SliceStable(users, func(i, j int) bool {
		a, b := scores[users[i].ID], scores[users[j].ID]
		if a.prefix != b.prefix {
			return a.prefix
		}
		if a.dist != b.dist {
			return a.dist < b.dist
		}
		return users[i].Name < users[j].Name
	})
}
