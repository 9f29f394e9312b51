package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sagarc03/itemgate"
)

type columnInfo struct {
	name       string
	dataType   string
	isNullable bool
}

func validateTableSchema(ctx context.Context, db *sql.DB, tableName string, expectedSchema map[string]columnInfo) error {
	if !itemgate.IsValidTableName(tableName) {
		return fmt.Errorf("validate table schema: invalid table name: %s", tableName)
	}

	exists, err := tableExists(ctx, db, tableName)
	if err != nil {
		return fmt.Errorf("validate table schema: %w", err)
	}

	if !exists {
		return fmt.Errorf("validate table schema: table %s does not exist", tableName)
	}

	query := fmt.Sprintf(`PRAGMA table_info(%s)`, quoteIdentifier(tableName))

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("validate table schema: query columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	actualColumns := make(map[string]columnInfo)
	for rows.Next() {
		var cid, notNull, pk int
		var name, dataType string
		var dfltValue sql.NullString

		if err := rows.Scan(&cid, &name, &dataType, &notNull, &dfltValue, &pk); err != nil {
			return fmt.Errorf("validate table schema: scan column: %w", err)
		}
		actualColumns[name] = columnInfo{
			name:       name,
			dataType:   strings.ToLower(dataType),
			isNullable: notNull == 0 && pk == 0,
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("validate table schema: rows error: %w", err)
	}

	var problems []string
	for colName, expected := range expectedSchema {
		actual, ok := actualColumns[colName]
		if !ok {
			problems = append(problems, fmt.Sprintf("missing column %s", colName))
			continue
		}

		if actual.dataType != expected.dataType {
			problems = append(problems, fmt.Sprintf("%s: expected %s, got %s", colName, expected.dataType, actual.dataType))
		}

		if actual.isNullable != expected.isNullable {
			problems = append(problems, fmt.Sprintf("%s: expected nullable=%v, got nullable=%v", colName, expected.isNullable, actual.isNullable))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("table %s schema validation failed: %s", tableName, strings.Join(problems, "; "))
	}

	return nil
}

func tableExists(ctx context.Context, db *sql.DB, tableName string) (bool, error) {
	var name string
	query := `SELECT name FROM sqlite_master WHERE type='table' AND name=?`
	err := db.QueryRowContext(ctx, query, tableName).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check table exists: %w", err)
	}
	return true, nil
}

type tableValidation struct {
	tableName      string
	expectedSchema map[string]columnInfo
}

var usersTableSchema = map[string]columnInfo{
	"uid":        {"uid", "text", false},
	"email":      {"email", "text", false},
	"created_at": {"created_at", "text", false},
}

var credentialsTableSchema = map[string]columnInfo{
	"uid":           {"uid", "text", false},
	"email":         {"email", "text", false},
	"password_hash": {"password_hash", "text", false},
	"created_at":    {"created_at", "text", false},
}

var itemsTableSchema = map[string]columnInfo{
	"id":         {"id", "text", false},
	"data":       {"data", "text", false},
	"created_at": {"created_at", "text", false},
	"updated_at": {"updated_at", "text", false},
}

func getTableValidations(tables itemgate.Tables) []tableValidation {
	return []tableValidation{
		{tableName: tables.Users, expectedSchema: usersTableSchema},
		{tableName: tables.Credentials, expectedSchema: credentialsTableSchema},
		{tableName: tables.Items, expectedSchema: itemsTableSchema},
	}
}

// ValidateSchema checks every table against the columns the repos rely on.
func ValidateSchema(ctx context.Context, db *sql.DB, tables itemgate.Tables) error {
	for _, validation := range getTableValidations(tables) {
		if err := validateTableSchema(ctx, db, validation.tableName, validation.expectedSchema); err != nil {
			return fmt.Errorf("validate schema %s: %w", validation.tableName, err)
		}
	}

	return nil
}
