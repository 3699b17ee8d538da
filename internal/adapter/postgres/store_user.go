package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/MonitorForge/internal/domain"
	"github.com/Strob0t/MonitorForge/internal/domain/user"
)

// userColumns is the SELECT column list for users queries.
const userColumns = `id, tenant_id, email, name, password_hash, role, enabled, created_at, updated_at`

func scanUser(row scannable) (*user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.TenantID, &u.Email, &u.Name, &u.PasswordHash,
		&u.Role, &u.Enabled, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a user into the acting tenant. The caller provides the
// password hash; plaintext never reaches this layer.
func (s *Store) CreateUser(ctx context.Context, u user.User) (*user.User, error) {
	tid, err := tenantFromCtx(ctx)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	now := time.Now().UTC()
	u.ID = uuid.NewString()
	u.TenantID = tid
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err = s.pool.Exec(ctx, `
		INSERT INTO users (id, tenant_id, email, name, password_hash, role, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.TenantID, u.Email, u.Name, u.PasswordHash, u.Role, u.Enabled, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("create user %s: %w", u.Email, domain.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*user.User, error) {
	tid, err := tenantFromCtx(ctx)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !validUUID(id) {
		return nil, fmt.Errorf("get user %s: %w", id, domain.ErrNotFound)
	}

	row := s.pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = $1 AND tenant_id = $2`, id, tid)

	u, err := scanUser(row)
	if err != nil {
		return nil, notFoundWrap(err, "get user %s", id)
	}
	return u, nil
}

// GetUserByEmail serves login and is deliberately not tenant-scoped: the
// tenant is derived from the user, not the other way round.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE email = $1`, email)

	u, err := scanUser(row)
	if err != nil {
		return nil, notFoundWrap(err, "get user by email %s", email)
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	tid, err := tenantFromCtx(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+userColumns+` FROM users WHERE tenant_id = $1 ORDER BY created_at`, tid)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUser(ctx context.Context, id string, req user.UpdateRequest) (*user.User, error) {
	tid, err := tenantFromCtx(ctx)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	if !validUUID(id) {
		return nil, fmt.Errorf("update user %s: %w", id, domain.ErrNotFound)
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE users SET
			name = COALESCE(NULLIF($3, ''), name),
			role = COALESCE(NULLIF($4, '')::text, role),
			enabled = COALESCE($5, enabled),
			updated_at = now()
		WHERE id = $1 AND tenant_id = $2
		RETURNING `+userColumns,
		id, tid, req.Name, string(req.Role), req.Enabled)

	u, err := scanUser(row)
	if err != nil {
		return nil, notFoundWrap(err, "update user %s", id)
	}
	return u, nil
}
