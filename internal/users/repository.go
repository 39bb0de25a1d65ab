package users

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// searchLimit bounds the rows read per search before ranking.
const searchLimit = 50

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SearchActive returns active users whose name or email contains term.
func (r *Repository) SearchActive(ctx context.Context, term string) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT id::text, name, email, COALESCE(small_photo_url, ''), COALESCE(title, '')
FROM users
WHERE is_active AND (name ILIKE $1 OR email ILIKE $1)
ORDER BY name
LIMIT $2`, "%"+escapeLike(term)+"%", searchLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.PhotoURL, &user.Title); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}
