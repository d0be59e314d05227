package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-live/backend/internal/models"
	"github.com/aura-live/backend/pkg/database"
)

// Repository reads users and their standing. Accounts are provisioned by the identity provider.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const q = `SELECT id, email, name, role, status, created_at FROM users WHERE id = $1`
	var u models.User
	err := r.pool.QueryRow(ctx, q, id).Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.Status, &u.CreatedAt)
	if err != nil {
		return nil, database.Translate(err)
	}
	return &u, nil
}

// List returns all users ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, email, name, role, status, created_at FROM users ORDER BY name, email`)
	if err != nil {
		return nil, database.Translate(err)
	}
	defer rows.Close()
	list := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.Status, &u.CreatedAt); err != nil {
			return nil, database.Translate(err)
		}
		list = append(list, u)
	}
	return list, database.Translate(rows.Err())
}

// SetStatus bans or reinstates a user.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status models.UserStatus) (*models.User, error) {
	const q = `UPDATE users SET status = $2 WHERE id = $1 RETURNING id, email, name, role, status, created_at`
	var u models.User
	err := r.pool.QueryRow(ctx, q, id, status).Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.Status, &u.CreatedAt)
	if err != nil {
		return nil, database.Translate(err)
	}
	return &u, nil
}
