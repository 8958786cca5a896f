package kv

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/go-sql-driver/mysql"

	"github.com/birthapp/birthapp-go/internal/apperr"
)

const createTableQuery = `
	CREATE TABLE IF NOT EXISTS kv_entries (
		k VARCHAR(255) NOT NULL PRIMARY KEY,
		v MEDIUMTEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	)`

// MySQL keeps keys in a single kv_entries table.
type MySQL struct {
	db *sql.DB
}

// NewMySQL creates a MySQL store over db.
func NewMySQL(db *sql.DB) *MySQL {
	return &MySQL{db: db}
}

// EnsureSchema creates the kv_entries table if it does not exist.
func (m *MySQL) EnsureSchema(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, createTableQuery); err != nil {
		return fmt.Errorf("creating kv_entries: %w", err)
	}
	return nil
}

func (m *MySQL) Get(ctx context.Context, key string) (string, bool, error) {
	query := `SELECT v FROM kv_entries WHERE k = ?`

	var v string
	err := m.db.QueryRowContext(ctx, query, key).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, dbError("get", err)
	}

	return v, true, nil
}

func (m *MySQL) Set(ctx context.Context, key, value string) error {
	query := `INSERT INTO kv_entries (k, v) VALUES (?, ?) ON DUPLICATE KEY UPDATE v = VALUES(v)`

	if _, err := m.db.ExecContext(ctx, query, key, value); err != nil {
		return dbError("set", err)
	}
	return nil
}

func (m *MySQL) Del(ctx context.Context, key string) (int, error) {
	result, err := m.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE k = ?`, key)
	if err != nil {
		return 0, dbError("del", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, dbError("del", err)
	}
	return int(n), nil
}

// GetDel locks the row, reads it and deletes it inside one transaction.
func (m *MySQL) GetDel(ctx context.Context, key string) (string, bool, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, dbError("getdel", err)
	}
	defer tx.Rollback()

	var v string
	err = tx.QueryRowContext(ctx, `SELECT v FROM kv_entries WHERE k = ? FOR UPDATE`, key).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, dbError("getdel", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM kv_entries WHERE k = ?`, key); err != nil {
		return "", false, dbError("getdel", err)
	}

	if err := tx.Commit(); err != nil {
		return "", false, dbError("getdel", err)
	}
	return v, true, nil
}

func (m *MySQL) Kind() string { return "mysql" }

// dbError maps a database failure onto an upstream error when the server
// answered with an error packet and a network error otherwise.
func dbError(op string, err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return &apperr.UpstreamError{Service: "mysql", Op: op, Body: myErr.Error()}
	}

	var opErr *net.OpError
	switch {
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, mysql.ErrInvalidConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, sql.ErrTxDone),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.As(err, &opErr):
		return &apperr.NetworkError{Service: "mysql", Op: op, Err: err}
	}
	return fmt.Errorf("mysql %s: %w", op, err)
}
