package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when no row matches.
var ErrNotFound = errors.New("record not found")

// table is the shared gateway every concrete table embeds.
type table struct {
	client  *SQLClient
	name    string
	pk      string
	columns []string // without pk
}

func (t *table) selectList() string {
	return t.pk + ", " + strings.Join(t.columns, ", ")
}

// fetchRow scans the first row matching where into dest.
func (t *table) fetchRow(ctx context.Context, dest interface{}, where string, args ...interface{}) error {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s LIMIT 1", t.selectList(), t.name, where)
	err := t.client.DB.GetContext(ctx, dest, t.client.DB.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to fetch %s row: %w", t.name, err)
	}
	return nil
}

// fetchAll scans every row matching where (all rows when where is empty), ordered by pk.
func (t *table) fetchAll(ctx context.Context, dest interface{}, where string, args ...interface{}) error {
	query := fmt.Sprintf("SELECT %s FROM %s", t.selectList(), t.name)
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY " + t.pk

	if err := t.client.DB.SelectContext(ctx, dest, t.client.DB.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to fetch %s rows: %w", t.name, err)
	}
	return nil
}

func (t *table) getByID(ctx context.Context, dest interface{}, id int64) error {
	return t.fetchRow(ctx, dest, t.pk+" = ?", id)
}

// insert writes values (ordered as t.columns) and returns the generated primary key.
func (t *table) insert(ctx context.Context, values []interface{}) (int64, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(t.columns)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.name, strings.Join(t.columns, ", "), placeholders)

	if t.client.Driver() == "postgres" {
		var id int64
		query += " RETURNING " + t.pk
		if err := t.client.DB.QueryRowxContext(ctx, t.client.DB.Rebind(query), values...).Scan(&id); err != nil {
			return 0, fmt.Errorf("failed to insert %s row: %w", t.name, err)
		}
		return id, nil
	}

	res, err := t.client.DB.ExecContext(ctx, t.client.DB.Rebind(query), values...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert %s row: %w", t.name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read %s insert id: %w", t.name, err)
	}
	return id, nil
}

// update rewrites every column of row id. A missing row yields ErrNotFound.
func (t *table) update(ctx context.Context, id int64, values []interface{}) error {
	assignments := make([]string, len(t.columns))
	for i, col := range t.columns {
		assignments[i] = col + " = ?"
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", t.name, strings.Join(assignments, ", "), t.pk)

	res, err := t.client.DB.ExecContext(ctx, t.client.DB.Rebind(query), append(values, id)...)
	if err != nil {
		return fmt.Errorf("failed to update %s row: %w", t.name, err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		// MySQL reports 0 for unchanged rows, so confirm the row exists.
		var exists int
		check := fmt.Sprintf("SELECT 1 FROM %s WHERE %s = ?", t.name, t.pk)
		if err := t.client.DB.GetContext(ctx, &exists, t.client.DB.Rebind(check), id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to check %s row: %w", t.name, err)
		}
	}
	return nil
}

// save inserts when id is zero and updates otherwise, returning the row id.
func (t *table) save(ctx context.Context, id int64, values []interface{}) (int64, error) {
	if id == 0 {
		return t.insert(ctx, values)
	}
	if err := t.update(ctx, id, values); err != nil {
		return 0, err
	}
	return id, nil
}
