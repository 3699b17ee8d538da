package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/MonitorForge/internal/domain"
	"github.com/Strob0t/MonitorForge/internal/domain/user"
)

// CreateAPIKey inserts an API key into the acting tenant. The caller
// provides the hash; the plaintext key never reaches this layer.
func (s *Store) CreateAPIKey(ctx context.Context, key user.APIKey) (*user.APIKey, error) {
	tid, err := tenantFromCtx(ctx)
	if err != nil {
		return nil, fmt.Errorf("create api key: %w", err)
	}

	key.ID = uuid.NewString()
	key.TenantID = tid
	key.CreatedAt = time.Now().UTC()

	var expiresAt any
	if !key.ExpiresAt.IsZero() {
		expiresAt = key.ExpiresAt
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO api_keys (id, tenant_id, name, prefix, key_hash, role, scopes, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		key.ID, key.TenantID, key.Name, key.Prefix, key.KeyHash, key.Role, key.Scopes, expiresAt, key.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create api key: %w", err)
	}
	return &key, nil
}

// GetAPIKeyByHash serves authentication and is deliberately not
// tenant-scoped: the tenant is derived from the key, not the other way round.
func (s *Store) GetAPIKeyByHash(ctx context.Context, keyHash string) (*user.APIKey, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, tenant_id, name, prefix, key_hash, role, scopes, expires_at, created_at
		FROM api_keys WHERE key_hash = $1`, keyHash)

	var key user.APIKey
	var expiresAt sql.NullTime
	err := row.Scan(&key.ID, &key.TenantID, &key.Name, &key.Prefix, &key.KeyHash,
		&key.Role, &key.Scopes, &expiresAt, &key.CreatedAt)
	if err != nil {
		return nil, notFoundWrap(err, "get api key")
	}
	if expiresAt.Valid {
		key.ExpiresAt = expiresAt.Time
	}
	return &key, nil
}

func (s *Store) ListAPIKeys(ctx context.Context) ([]user.APIKey, error) {
	tid, err := tenantFromCtx(ctx)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, tenant_id, name, prefix, key_hash, role, scopes, expires_at, created_at
		FROM api_keys WHERE tenant_id = $1 ORDER BY created_at`, tid)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []user.APIKey
	for rows.Next() {
		var key user.APIKey
		var expiresAt sql.NullTime
		if err := rows.Scan(&key.ID, &key.TenantID, &key.Name, &key.Prefix, &key.KeyHash,
			&key.Role, &key.Scopes, &expiresAt, &key.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		if expiresAt.Valid {
			key.ExpiresAt = expiresAt.Time
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (s *Store) DeleteAPIKey(ctx context.Context, id string) error {
	tid, err := tenantFromCtx(ctx)
	if err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	if !validUUID(id) {
		return fmt.Errorf("delete api key %s: %w", id, domain.ErrNotFound)
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM api_keys WHERE id = $1 AND tenant_id = $2`, id, tid)
	return execExpectOne(tag, err, "delete api key %s", id)
}
