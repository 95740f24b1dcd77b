package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/destiin/travel-booking/internal/domain/entity"
	"github.com/destiin/travel-booking/internal/infrastructure/persistence/sqlite"
	"github.com/destiin/travel-booking/internal/pkg/errs"
)

// isUniqueViolation reports whether err is a SQLite UNIQUE or PRIMARY KEY violation
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// classify turns unique violations into conflicts and wraps everything else
func classify(err error, action string) error {
	if isUniqueViolation(err) {
		return errs.Mark(fmt.Errorf("%s: %w", action, err), errs.ErrConflict)
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

// inTx runs fn inside the context transaction, opening one when absent
func inTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context, exec sqlite.Executor) error) error {
	if tx := sqlite.TxFrom(ctx); tx != nil {
		return fn(ctx, tx)
	}
	return sqlite.NewDB(db, nil).WithTransaction(ctx, func(txCtx context.Context) error {
		return fn(txCtx, sqlite.TxFrom(txCtx))
	})
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(entity.DateLayout)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(entity.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored date %q: %w", s, err)
	}
	return t, nil
}

func marshalJSON(v interface{}, empty string) (string, error) {
	if v == nil {
		return empty, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode column: %w", err)
	}
	if string(b) == "null" {
		return empty, nil
	}
	return string(b), nil
}

func unmarshalJSON(s string, v interface{}) error {
	if s == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("failed to decode column: %w", err)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
