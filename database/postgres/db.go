package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/itemgate"
)

type columnInfo struct {
	name       string
	dataType   string
	isNullable bool
}

func validateTableSchema(ctx context.Context, pool *pgxpool.Pool, tableName string, expectedSchema map[string]columnInfo) error {
	if !itemgate.IsValidTableName(tableName) {
		return fmt.Errorf("validate table schema: invalid table name: %s", tableName)
	}

	exists, err := tableExists(ctx, pool, tableName)
	if err != nil {
		return fmt.Errorf("validate table schema: %w", err)
	}

	if !exists {
		return fmt.Errorf("validate table schema: table %s does not exist", tableName)
	}

	query := `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position
	`

	rows, err := pool.Query(ctx, query, tableName)
	if err != nil {
		return fmt.Errorf("validate table schema: query columns: %w", err)
	}
	defer rows.Close()

	actualColumns := make(map[string]columnInfo)
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return fmt.Errorf("validate table schema: scan column: %w", err)
		}
		actualColumns[name] = columnInfo{
			name:       name,
			dataType:   strings.ToLower(dataType),
			isNullable: nullable == "YES",
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

func tableExists(ctx context.Context, pool *pgxpool.Pool, tableName string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM information_schema.tables
			WHERE table_schema = current_schema()
			AND table_name = $1
		)
	`
	err := pool.QueryRow(ctx, query, tableName).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check table exists: %w", err)
	}
	return exists, nil
}

type tableValidation struct {
	tableName      string
	expectedSchema map[string]columnInfo
}

const timestamptz = "timestamp with time zone"

var usersTableSchema = map[string]columnInfo{
	"uid":        {"uid", "text", false},
	"email":      {"email", "text", false},
	"created_at": {"created_at", timestamptz, false},
}

var credentialsTableSchema = map[string]columnInfo{
	"uid":           {"uid", "text", false},
	"email":         {"email", "text", false},
	"password_hash": {"password_hash", "text", false},
	"created_at":    {"created_at", timestamptz, false},
}

var itemsTableSchema = map[string]columnInfo{
	"id":         {"id", "text", false},
	"seq":        {"seq", "bigint", false},
	"data":       {"data", "jsonb", false},
	"created_at": {"created_at", timestamptz, false},
	"updated_at": {"updated_at", timestamptz, false},
}

func getTableValidations(tables itemgate.Tables) []tableValidation {
	return []tableValidation{
		{tableName: tables.Users, expectedSchema: usersTableSchema},
		{tableName: tables.Credentials, expectedSchema: credentialsTableSchema},
		{tableName: tables.Items, expectedSchema: itemsTableSchema},
	}
}

// ValidateSchema checks every table against the columns the repos rely on.
func ValidateSchema(ctx context.Context, pool *pgxpool.Pool, tables itemgate.Tables) error {
	for _, validation := range getTableValidations(tables) {
		if err := validateTableSchema(ctx, pool, validation.tableName, validation.expectedSchema); err != nil {
			return fmt.Errorf("validate schema %s: %w", validation.tableName, err)
		}
	}

	return nil
}
