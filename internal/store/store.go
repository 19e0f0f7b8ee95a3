// Package store keeps the recorded history of metric groups in sqlite.
//
// Every (prefix, scope) pair has its own table named <prefix>_<scope> with a
// time column followed by one NUMERIC column per field. Tables are created
// on first write and grow a column when a group reports a new field.
package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	// pure Go sqlite driver, registered as "sqlite"
	_ "modernc.org/sqlite"

	"github.com/rileyhilliard/whm/internal/errors"
	"github.com/rileyhilliard/whm/internal/history"
	"github.com/rileyhilliard/whm/internal/logger"
	"github.com/rileyhilliard/whm/internal/report"
)

// ErrNoTable is returned when the requested table has never been written.
var ErrNoTable = stderrors.New("table does not exist")

// DefaultRetention is how many scope units of rows each table keeps.
var DefaultRetention = map[history.Scope]int{
	history.Hours: 48,
	history.Days:  30,
	history.Weeks: 52,
}

// Unit returns the length of one scope unit.
func Unit(scope history.Scope) time.Duration {
	switch scope {
	case history.Days:
		return 24 * time.Hour
	case history.Weeks:
		return 7 * 24 * time.Hour
	default:
		return time.Hour
	}
}

// Store is a sqlite database of history tables.
type Store struct {
	db        *sql.DB
	log       logger.Logger
	retention map[history.Scope]int
	now       func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithRetention overrides the number of units kept for scope. Zero or less
// keeps everything.
func WithRetention(scope history.Scope, units int) Option {
	return func(s *Store) { s.retention[scope] = units }
}

// WithClock replaces time.Now for timestamps and pruning.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens or creates the database at path.
func Open(path string, log logger.Logger, opts ...Option) (*Store, error) {
	if log == nil {
		log = logger.Noop()
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrStore,
			fmt.Sprintf("Couldn't open history database %s", path), "")
	}
	// One writer at a time; schema changes and inserts share a transaction.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.WrapWithCode(err, errors.ErrStore,
			fmt.Sprintf("Couldn't open history database %s", path),
			"Check that the directory exists and is writable.")
	}

	s := &Store{db: db, log: log, retention: make(map[history.Scope]int), now: time.Now}
	for scope, units := range DefaultRetention {
		s.retention[scope] = units
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ValidIdentifier reports whether name can be used as a table or column
// name: letters, digits and . _ @ - only.
func ValidIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '_', r == '@', r == '-':
		default:
			return false
		}
	}
	return true
}

// TableName returns the table holding prefix at scope.
func TableName(prefix string, scope history.Scope) string {
	return prefix + "_" + scope.String()
}

func quote(name string) string {
	return `"` + name + `"`
}

func invalidIdentifier(name string) error {
	return errors.New(errors.ErrData,
		fmt.Sprintf("Invalid identifier %q", name),
		"Names may only contain letters, digits and . _ @ -")
}

// Record appends one row of values to the table of prefix at scope, then
// deletes rows older than the scope's retention.
func (s *Store) Record(ctx context.Context, prefix string, scope history.Scope, values report.Values) error {
	table := TableName(prefix, scope)
	if !ValidIdentifier(table) {
		return invalidIdentifier(table)
	}
	for _, f := range values {
		if !ValidIdentifier(f.Name) || f.Name == "time" {
			return invalidIdentifier(f.Name)
		}
	}
	if len(values) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.storeErr(err, "Couldn't start a transaction on "+table)
	}
	defer tx.Rollback()

	if err := s.ensureColumns(ctx, tx, table, values.Names()); err != nil {
		return err
	}

	now := s.now().UTC()
	cols := []string{quote("time")}
	marks := []string{"?"}
	args := []interface{}{now.Format(history.TimeLayout)}
	for _, f := range values {
		cols = append(cols, quote(f.Name))
		marks = append(marks, "?")
		if math.IsNaN(f.Value) {
			args = append(args, nil)
		} else {
			args = append(args, f.Value)
		}
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quote(table), strings.Join(cols, ", "), strings.Join(marks, ", "))
	if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
		return s.storeErr(err, "Couldn't insert into "+table)
	}

	if keep := s.retention[scope]; keep > 0 {
		cutoff := now.Add(-time.Duration(keep) * Unit(scope)).Format(history.TimeLayout)
		res, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE time < ?", quote(table)), cutoff)
		if err != nil {
			return s.storeErr(err, "Couldn't prune "+table)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			s.log.Debug("pruned %d rows from %s", n, table)
		}
	}

	if err := tx.Commit(); err != nil {
		return s.storeErr(err, "Couldn't commit to "+table)
	}
	return nil
}

// ensureColumns creates table or adds the fields it lacks.
func (s *Store) ensureColumns(ctx context.Context, tx *sql.Tx, table string, fields []string) error {
	existing, err := columns(ctx, tx, table)
	if err != nil {
		return s.storeErr(err, "Couldn't read the layout of "+table)
	}

	if len(existing) == 0 {
		defs := []string{quote("time") + " DATETIME"}
		for _, f := range fields {
			defs = append(defs, quote(f)+" NUMERIC")
		}
		stmt := fmt.Sprintf("CREATE TABLE %s (%s)", quote(table), strings.Join(defs, ", "))
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return s.storeErr(err, "Couldn't create "+table)
		}
		s.log.Info("created table %s", table)
		return nil
	}

	have := make(map[string]bool, len(existing))
	for _, c := range existing {
		have[c] = true
	}
	for _, f := range fields {
		if have[f] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s NUMERIC", quote(table), quote(f))
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return s.storeErr(err, fmt.Sprintf("Couldn't add column %s to %s", f, table))
		}
		s.log.Info("added column %s to %s", f, table)
	}
	return nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// columns returns every column of table in declaration order, or nil when
// the table does not exist.
func columns(ctx context.Context, q querier, table string) ([]string, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quote(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

// Keys returns the field columns of table in declaration order.
func (s *Store) Keys(ctx context.Context, table string) ([]string, error) {
	if !ValidIdentifier(table) {
		return nil, invalidIdentifier(table)
	}
	cols, err := columns(ctx, s.db, table)
	if err != nil {
		return nil, s.storeErr(err, "Couldn't read the layout of "+table)
	}
	if len(cols) == 0 {
		return nil, ErrNoTable
	}
	keys := make([]string, 0, len(cols)-1)
	for _, c := range cols {
		if c != "time" {
			keys = append(keys, c)
		}
	}
	return keys, nil
}

// Rows returns every row of table, oldest first, with values in Keys order.
// Missing readings are NaN.
func (s *Store) Rows(ctx context.Context, table string) ([]history.Row, error) {
	_, rows, err := s.Table(ctx, table)
	return rows, err
}

// Table returns the columns of table together with its rows, read from the
// same layout so the two always line up.
func (s *Store) Table(ctx context.Context, table string) ([]string, []history.Row, error) {
	keys, err := s.Keys(ctx, table)
	if err != nil {
		return nil, nil, err
	}

	cols := []string{quote("time")}
	for _, k := range keys {
		cols = append(cols, quote(k))
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY time", strings.Join(cols, ", "), quote(table))
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, s.storeErr(err, "Couldn't read "+table)
	}
	defer rows.Close()

	var out []history.Row
	for rows.Next() {
		cells := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, s.storeErr(err, "Couldn't read "+table)
		}

		ts, err := toTime(cells[0])
		if err != nil {
			return nil, nil, errors.WrapWithCode(err, errors.ErrData, "Bad timestamp in "+table, "")
		}
		row := history.Row{Time: ts, Values: make([]float64, len(keys))}
		for i, cell := range cells[1:] {
			row.Values[i] = toFloat(cell)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, s.storeErr(err, "Couldn't read "+table)
	}
	return keys, out, nil
}

// Tables lists every history table.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name")
	if err != nil {
		return nil, s.storeErr(err, "Couldn't list tables")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, s.storeErr(err, "Couldn't list tables")
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Store) storeErr(err error, msg string) error {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return errors.WrapWithCode(err, errors.ErrStore, msg, "")
}

func toTime(cell interface{}) (time.Time, error) {
	switch v := cell.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		return time.ParseInLocation(history.TimeLayout, v, time.UTC)
	case []byte:
		return time.ParseInLocation(history.TimeLayout, string(v), time.UTC)
	case int64:
		return time.Unix(v, 0).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unexpected time value %v", cell)
	}
}

func toFloat(cell interface{}) float64 {
	switch v := cell.(type) {
	case int64:
		return float64(v)
	case float64:
		return v
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	case []byte:
		if f, err := strconv.ParseFloat(string(v), 64); err == nil {
			return f
		}
	}
	return math.NaN()
}
