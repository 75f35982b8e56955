// Package db provides a database interface and pgxpool implementation for Lambda functions.
package db

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB defines the database operations used by Lambda handlers.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) ([]map[string]any, error)
	Insert(ctx context.Context, sql string, args ...any) (string, error)
	Exec(ctx context.Context, sql string, args ...any) error
	// ExecCount runs a statement and returns the number of rows it affected.
	ExecCount(ctx context.Context, sql string, args ...any) (int64, error)
}

// CredentialsFunc returns database credentials as a JSON-encoded map with keys:
// host, port, dbname, username, password.
type CredentialsFunc func(ctx context.Context) (map[string]string, error)

// PgxDB implements DB using pgxpool.
type PgxDB struct {
	credsFn CredentialsFunc
	pool    *pgxpool.Pool
	once    sync.Once
	initErr error
}

// New creates a new PgxDB with lazy pool initialization.
func New(credsFn CredentialsFunc) *PgxDB {
	return &PgxDB{credsFn: credsFn}
}

func (d *PgxDB) init(ctx context.Context) error {
	d.once.Do(func() {
		creds, err := d.credsFn(ctx)
		if err != nil {
			d.initErr = fmt.Errorf("get db credentials: %w", err)
			return
		}

		config, err := pgxpool.ParseConfig(connString(creds))
		if err != nil {
			d.initErr = fmt.Errorf("parse pool config: %w", err)
			return
		}

		pool, err := pgxpool.NewWithConfig(ctx, config)
		if err != nil {
			d.initErr = fmt.Errorf("create pool: %w", err)
			return
		}
		d.pool = pool
	})
	return d.initErr
}

func connString(creds map[string]string) string {
	host := creds["host"]
	port := creds["port"]
	if port == "" {
		port = "5432"
	}
	dbname := creds["dbname"]
	if dbname == "" {
		dbname = creds["database"]
	}
	if dbname == "" {
		dbname = "postgres"
	}
	schema := creds["schema"]
	if schema == "" {
		schema = "radar"
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?search_path=%s,public&pool_max_conns=2&connect_timeout=10",
		creds["username"], creds["password"], host, port, dbname, schema,
	)
}

// Query executes a SQL query and returns results as a slice of maps.
func (d *PgxDB) Query(ctx context.Context, sql string, args ...any) ([]map[string]any, error) {
	if err := d.init(ctx); err != nil {
		return nil, err
	}

	rows, err := d.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	var results []map[string]any

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make(map[string]any, len(fieldDescs))
		for i, fd := range fieldDescs {
			row[fd.Name] = values[i]
		}
		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return results, nil
}

// Insert executes a SQL INSERT with RETURNING id and returns the id as a string.
func (d *PgxDB) Insert(ctx context.Context, sql string, args ...any) (string, error) {
	if err := d.init(ctx); err != nil {
		return "", err
	}

	var id any
	err := d.pool.QueryRow(ctx, sql, args...).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert: %w", err)
	}

	return StrVal(SerializeValue(id)), nil
}

// Exec executes a SQL statement that does not return rows.
func (d *PgxDB) Exec(ctx context.Context, sql string, args ...any) error {
	_, err := d.ExecCount(ctx, sql, args...)
	return err
}

// ExecCount executes a SQL statement and reports how many rows it touched.
func (d *PgxDB) ExecCount(ctx context.Context, sql string, args ...any) (int64, error) {
	if err := d.init(ctx); err != nil {
		return 0, err
	}

	tag, err := d.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("exec: %w", err)
	}
	return tag.RowsAffected(), nil
}

// SerializeValue converts database values to JSON-friendly types.
// Handles UUIDs, time.Time, numerics, etc.
func SerializeValue(v any) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case []byte:
		return string(val)
	case [16]byte:
		return fmt.Sprintf("%x-%x-%x-%x-%x", val[0:4], val[4:6], val[6:8], val[8:10], val[10:16])
	case pgtype.Numeric:
		f, err := val.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	default:
		return v
	}
}

// StrVal renders a column value as a string, or "" for NULL.
func StrVal(v any) string {
	v = SerializeValue(v)
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// ToInt64 converts integer-like column values.
func ToInt64(v any) (int64, bool) {
	switch val := SerializeValue(v).(type) {
	case int64:
		return val, true
	case int32:
		return int64(val), true
	case int:
		return int64(val), true
	case float64:
		return int64(val), true
	default:
		return 0, false
	}
}

// ToFloat64 converts numeric column values, including NUMERIC.
func ToFloat64(v any) (float64, bool) {
	switch val := SerializeValue(v).(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case int:
		return float64(val), true
	default:
		return 0, false
	}
}

// ToTime converts timestamp column values.
func ToTime(v any) (time.Time, bool) {
	t, ok := v.(time.Time)
	return t, ok
}
