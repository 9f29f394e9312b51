// Package sqlite implements the itemgate store interfaces using SQLite
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sagarc03/itemgate"
)

// timeFormat is fixed-width so that stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func now() string {
	return time.Now().UTC().Format(timeFormat)
}

type identityRepo struct {
	db        *sql.DB
	tableName string
}

func (r *identityRepo) CreateUser(ctx context.Context, email string) (itemgate.Identity, error) {
	if email == "" {
		return itemgate.Identity{}, fmt.Errorf("create user: %w: email cannot be empty", itemgate.ErrInvalidInput)
	}

	uid := uuid.NewString()
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (uid, email, created_at) VALUES (?, ?, ?)
		ON CONFLICT DO NOTHING`, quoteIdentifier(r.tableName))

	result, err := r.db.ExecContext(ctx, query, uid, email, now())
	if err != nil {
		return itemgate.Identity{}, fmt.Errorf("create user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return itemgate.Identity{}, fmt.Errorf("create user: rows affected: %w", err)
	}
	if affected == 0 {
		return itemgate.Identity{}, fmt.Errorf("create user: %w", itemgate.ErrEmailTaken)
	}

	return itemgate.Identity{UID: uid, Email: email}, nil
}

func (r *identityRepo) GetUserByEmail(ctx context.Context, email string) (itemgate.Identity, error) {
	query := fmt.Sprintf(`SELECT uid, email FROM %s WHERE lower(email) = lower(?)`, quoteIdentifier(r.tableName)) //nolint:gosec // table name is validated

	var identity itemgate.Identity
	err := r.db.QueryRowContext(ctx, query, email).Scan(&identity.UID, &identity.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return itemgate.Identity{}, itemgate.ErrNotFound
		}
		return itemgate.Identity{}, fmt.Errorf("get user by email: %w", err)
	}

	return identity, nil
}

type credentialRepo struct {
	db        *sql.DB
	tableName string
}

func (r *credentialRepo) PutCredential(ctx context.Context, cred itemgate.Credential) error {
	if cred.UID == "" || cred.PasswordHash == "" {
		return fmt.Errorf("put credential: %w: uid and password hash are required", itemgate.ErrInvalidInput)
	}

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (uid, email, password_hash, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (uid) DO UPDATE SET email = excluded.email, password_hash = excluded.password_hash`,
		quoteIdentifier(r.tableName))

	if _, err := r.db.ExecContext(ctx, query, cred.UID, cred.Email, cred.PasswordHash, now()); err != nil {
		return fmt.Errorf("put credential: %w", err)
	}

	return nil
}

func (r *credentialRepo) GetCredential(ctx context.Context, uid string) (itemgate.Credential, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT uid, email, password_hash, created_at FROM %s WHERE uid = ?`, quoteIdentifier(r.tableName))

	var cred itemgate.Credential
	var createdAt string
	err := r.db.QueryRowContext(ctx, query, uid).Scan(&cred.UID, &cred.Email, &cred.PasswordHash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return itemgate.Credential{}, itemgate.ErrNotFound
		}
		return itemgate.Credential{}, fmt.Errorf("get credential: %w", err)
	}

	cred.CreatedAt, err = time.Parse(timeFormat, createdAt)
	if err != nil {
		return itemgate.Credential{}, fmt.Errorf("get credential: parse created_at: %w", err)
	}

	return cred, nil
}

type itemRepo struct {
	db        *sql.DB
	tableName string
}

func (r *itemRepo) Add(ctx context.Context, fields itemgate.Fields) (string, error) {
	data, err := encodeFields(fields)
	if err != nil {
		return "", fmt.Errorf("add item: %w", err)
	}

	id := uuid.NewString()
	ts := now()
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (id, data, created_at, updated_at) VALUES (?, ?, ?, ?)`, quoteIdentifier(r.tableName))

	if _, err := r.db.ExecContext(ctx, query, id, data, ts, ts); err != nil {
		return "", fmt.Errorf("add item: %w", err)
	}

	return id, nil
}

func (r *itemRepo) Get(ctx context.Context, id string) (itemgate.Item, error) {
	query := fmt.Sprintf(`SELECT data FROM %s WHERE id = ?`, quoteIdentifier(r.tableName)) //nolint:gosec // table name is validated

	var data string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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

// Merge reads, overlays and writes back inside one transaction.
func (r *itemRepo) Merge(ctx context.Context, id string, fields itemgate.Fields) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("merge item: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	table := quoteIdentifier(r.tableName)
	selectQuery := fmt.Sprintf(`SELECT data FROM %s WHERE id = ?`, table) //nolint:gosec // table name is validated

	var existing string
	err = tx.QueryRowContext(ctx, selectQuery, id).Scan(&existing)
	isInsert := errors.Is(err, sql.ErrNoRows)
	if err != nil && !isInsert {
		return fmt.Errorf("merge item: check existing: %w", err)
	}

	merged := itemgate.Fields{}
	if !isInsert {
		merged, err = decodeFields(existing)
		if err != nil {
			return fmt.Errorf("merge item %s: %w", id, err)
		}
	}
	maps.Copy(merged, fields)

	data, err := encodeFields(merged)
	if err != nil {
		return fmt.Errorf("merge item: %w", err)
	}

	ts := now()
	if isInsert {
		insertQuery := fmt.Sprintf( //nolint:gosec // G201: table name is validated
			`INSERT INTO %s (id, data, created_at, updated_at) VALUES (?, ?, ?, ?)`, table)
		if _, err := tx.ExecContext(ctx, insertQuery, id, data, ts, ts); err != nil {
			return fmt.Errorf("merge item: insert: %w", err)
		}
	} else {
		updateQuery := fmt.Sprintf(`UPDATE %s SET data = ?, updated_at = ? WHERE id = ?`, table) //nolint:gosec // table name is validated
		if _, err := tx.ExecContext(ctx, updateQuery, data, ts, id); err != nil {
			return fmt.Errorf("merge item: update: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("merge item: commit: %w", err)
	}

	return nil
}

func (r *itemRepo) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, quoteIdentifier(r.tableName)) //nolint:gosec // table name is validated

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}

	return nil
}

func (r *itemRepo) List(ctx context.Context) ([]itemgate.Item, error) {
	query := fmt.Sprintf(`SELECT id, data FROM %s ORDER BY created_at, rowid`, quoteIdentifier(r.tableName)) //nolint:gosec // table name is validated

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := []itemgate.Item{}
	for rows.Next() {
		var id, data string
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

// decodeFields keeps numbers as json.Number so large integers survive a round trip.
func decodeFields(data string) (itemgate.Fields, error) {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()

	fields := itemgate.Fields{}
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	return fields, nil
}
