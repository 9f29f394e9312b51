// Package postgres implements the itemgate store interfaces using PostgreSQL
package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/itemgate"
)

type identityRepo struct {
	pool      *pgxpool.Pool
	tableName string
}

func (r *identityRepo) CreateUser(ctx context.Context, email string) (itemgate.Identity, error) {
	if email == "" {
		return itemgate.Identity{}, fmt.Errorf("create user: %w: email cannot be empty", itemgate.ErrInvalidInput)
	}

	uid := uuid.NewString()
	query := fmt.Sprintf(`
		INSERT INTO %s (uid, email) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, pgx.Identifier{r.tableName}.Sanitize())

	tag, err := r.pool.Exec(ctx, query, uid, email)
	if err != nil {
		return itemgate.Identity{}, fmt.Errorf("create user: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return itemgate.Identity{}, fmt.Errorf("create user: %w", itemgate.ErrEmailTaken)
	}

	return itemgate.Identity{UID: uid, Email: email}, nil
}

func (r *identityRepo) GetUserByEmail(ctx context.Context, email string) (itemgate.Identity, error) {
	query := fmt.Sprintf(`SELECT uid, email FROM %s WHERE lower(email) = lower($1)`, pgx.Identifier{r.tableName}.Sanitize())

	var identity itemgate.Identity
	err := r.pool.QueryRow(ctx, query, email).Scan(&identity.UID, &identity.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return itemgate.Identity{}, itemgate.ErrNotFound
		}
		return itemgate.Identity{}, fmt.Errorf("get user by email: %w", err)
	}

	return identity, nil
}

type credentialRepo struct {
	pool      *pgxpool.Pool
	tableName string
}

func (r *credentialRepo) PutCredential(ctx context.Context, cred itemgate.Credential) error {
	if cred.UID == "" || cred.PasswordHash == "" {
		return fmt.Errorf("put credential: %w: uid and password hash are required", itemgate.ErrInvalidInput)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (uid, email, password_hash) VALUES ($1, $2, $3)
		ON CONFLICT (uid) DO UPDATE
		SET email = EXCLUDED.email,
			password_hash = EXCLUDED.password_hash
	`, pgx.Identifier{r.tableName}.Sanitize())

	if _, err := r.pool.Exec(ctx, query, cred.UID, cred.Email, cred.PasswordHash); err != nil {
		return fmt.Errorf("put credential: %w", err)
	}

	return nil
}

func (r *credentialRepo) GetCredential(ctx context.Context, uid string) (itemgate.Credential, error) {
	query := fmt.Sprintf(`
		SELECT uid, email, password_hash, created_at FROM %s WHERE uid = $1
	`, pgx.Identifier{r.tableName}.Sanitize())

	var cred itemgate.Credential
	err := r.pool.QueryRow(ctx, query, uid).Scan(&cred.UID, &cred.Email, &cred.PasswordHash, &cred.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return itemgate.Credential{}, itemgate.ErrNotFound
		}
		return itemgate.Credential{}, fmt.Errorf("get credential: %w", err)
	}

	return cred, nil
}

type itemRepo struct {
	pool      *pgxpool.Pool
	tableName string
}

func (r *itemRepo) Add(ctx context.Context, fields itemgate.Fields) (string, error) {
	data, err := encodeFields(fields)
	if err != nil {
		return "", fmt.Errorf("add item: %w", err)
	}

	id := uuid.NewString()
	query := fmt.Sprintf(`INSERT INTO %s (id, data) VALUES ($1, $2::jsonb)`, pgx.Identifier{r.tableName}.Sanitize())

	if _, err := r.pool.Exec(ctx, query, id, data); err != nil {
		return "", fmt.Errorf("add item: %w", err)
	}

	return id, nil
}

func (r *itemRepo) Get(ctx context.Context, id string) (itemgate.Item, error) {
	query := fmt.Sprintf(`SELECT data FROM %s WHERE id = $1`, pgx.Identifier{r.tableName}.Sanitize())

	var data []byte
	err := r.pool.QueryRow(ctx, query, id).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return itemgate.Item{}, itemgate.ErrNotFound
		}
		return itemgate.Item{}, fmt.Errorf("get item: %w", err)
	}

	fields, err := decodeFields(data)
	if err != nil {
		return itemgate.Item{}, fmt.Errorf("get item %s: %w", id, err)
	}

	return itemgate.Item{ID: id, Fields: fields}, nil
}

// Merge relies on jsonb concatenation, which overlays top-level keys only.
func (r *itemRepo) Merge(ctx context.Context, id string, fields itemgate.Fields) error {
	data, err := encodeFields(fields)
	if err != nil {
		return fmt.Errorf("merge item: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s AS t (id, data) VALUES ($1, $2::jsonb)
		ON CONFLICT (id) DO UPDATE
		SET data = t.data || EXCLUDED.data,
			updated_at = NOW()
	`, pgx.Identifier{r.tableName}.Sanitize())

	if _, err := r.pool.Exec(ctx, query, id, data); err != nil {
		return fmt.Errorf("merge item: %w", err)
	}

	return nil
}

func (r *itemRepo) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, pgx.Identifier{r.tableName}.Sanitize())

	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}

	return nil
}

func (r *itemRepo) List(ctx context.Context) ([]itemgate.Item, error) {
	query := fmt.Sprintf(`SELECT id, data FROM %s ORDER BY seq`, pgx.Identifier{r.tableName}.Sanitize())

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := []itemgate.Item{}
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("list items: scan: %w", err)
		}

		fields, err := decodeFields(data)
		if err != nil {
			return nil, fmt.Errorf("list items %s: %w", id, err)
		}
		items = append(items, itemgate.Item{ID: id, Fields: fields})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list items: rows error: %w", err)
	}

	return items, nil
}

func encodeFields(fields itemgate.Fields) (string, error) {
	if fields == nil {
		fields = itemgate.Fields{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode fields: %w: %v", itemgate.ErrInvalidInput, err)
	}
	return string(data), nil
}

func decodeFields(data []byte) (itemgate.Fields, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	fields := itemgate.Fields{}
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	return fields, nil
}
