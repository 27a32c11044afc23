// Package sqlitestore provides a SQLite implementation of account.Store.
//
// Accounts live in a single table with a unique index on email and one unique
// column per provider, so concurrent resolutions cannot create duplicates.
//
// Examples:
//
//	store := sqlitestore.New("file:accounts.db?_foreign_keys=on")
//
//	store := sqlitestore.New(":memory:", sqlitestore.WithPrefix("test_"))
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/dahromy/socialauth/account"
	"github.com/dahromy/socialauth/errors"
	"github.com/dahromy/socialauth/provider"
	"github.com/dahromy/socialauth/storage"
	"github.com/mattn/go-sqlite3"
)

// Option is a functional option for configuring the store.
type Option func(*Store)

// WithPrefix sets a prefix for the accounts table name.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithAutoCreateTables controls whether the accounts table is created on
// startup. Defaults to true.
func WithAutoCreateTables(autoCreate bool) Option {
	return func(s *Store) {
		s.autoCreateTables = autoCreate
	}
}

// WithClock overrides time.Now for updated_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New returns a store that provides sqlite backed storage. Any errors are
// considered non-recoverable and will panic, unless SafeNew is used instead.
func New(dsn string, opts ...Option) *Store {
	s, err := SafeNew(dsn, opts...)
	if err != nil {
		panic(err.Error())
	}
	return s
}

// SafeNew is like New but returns errors instead of panicking.
func SafeNew(dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.WrapPrefix(err, "failed to open sqlite connection", 0)
	}

	// SQLite allows one writer at a time, and every ":memory:" connection is a
	// separate database.
	db.SetMaxOpenConns(1)

	s, err := NewFromDB(db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewFromDB wraps an open database handle.
func NewFromDB(db *sql.DB, opts ...Option) (*Store, error) {
	s := &Store{
		db:               db,
		autoCreateTables: true,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.table = s.prefix + storage.TableName(&account.Account{})
	s.columns = strings.Join(storage.AccountColumns(), ", ")

	if s.autoCreateTables {
		if err := s.ensureTable(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Store is a SQLite backed account.Store.
type Store struct {
	db               *sql.DB
	prefix           string
	autoCreateTables bool
	now              func() time.Time

	table   string
	columns string
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// InTx implements account.Store.
func (s *Store) InTx(ctx context.Context, fn func(account.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return translateError(err)
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(&sqliteTx{tx: tx, s: s}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return translateError(tx.Commit())
}

func (s *Store) ensureTable() error {
	cols := []string{
		"id TEXT NOT NULL PRIMARY KEY",
		"email TEXT NOT NULL UNIQUE",
		"roles TEXT NOT NULL DEFAULT '[]'",
		"password_hash BLOB",
	}
	for _, p := range provider.All() {
		col, _ := storage.ProviderColumn(p)
		cols = append(cols, col+" TEXT UNIQUE")
	}
	cols = append(cols,
		"created_at TIMESTAMP NOT NULL",
		"updated_at TIMESTAMP NOT NULL",
	)

	_, err := s.db.Exec("CREATE TABLE IF NOT EXISTS " + s.table + " (\n\t" + strings.Join(cols, ",\n\t") + "\n);")
	if err != nil {
		return errors.Errorf("failed to create table [%s]: %w", s.table, err)
	}
	return nil
}

type sqliteTx struct {
	tx *sql.Tx
	s  *Store
}

func (t *sqliteTx) FindByIdentity(ctx context.Context, p provider.Name, providerID, contact string) (*account.Account, error) {
	col, err := storage.ProviderColumn(p)
	if err != nil {
		return nil, err
	}

	rows, err := t.tx.QueryContext(ctx,
		"SELECT "+t.s.columns+" FROM "+t.s.table+" WHERE "+col+" = ? OR email = ? LIMIT 2",
		providerID, contact)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var found []*account.Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, acct)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err)
	}

	switch len(found) {
	case 0:
		return nil, errors.Mark(storage.ErrNotFound, 0)
	case 1:
		return found[0], nil
	}
	return nil, errors.Mark(storage.ErrMultipleResults, 0)
}

func (t *sqliteTx) Get(ctx context.Context, id string) (*account.Account, error) {
	row := t.tx.QueryRowContext(ctx, "SELECT "+t.s.columns+" FROM "+t.s.table+" WHERE id = ?", id)
	return scanAccount(row)
}

func (t *sqliteTx) Insert(ctx context.Context, acct *account.Account) error {
	roles, err := json.Marshal(acct.Roles)
	if err != nil {
		return errors.Wrap(err, 0)
	}
	now := t.s.now().UTC()
	created, updated := acct.CreatedAt, acct.UpdatedAt
	if created.IsZero() {
		created = now
	}
	if updated.IsZero() {
		updated = created
	}

	args := []any{acct.ID, acct.Email, string(roles), nullBytes(acct.PasswordHash)}
	for _, p := range provider.All() {
		args = append(args, nullString(acct.ProviderIDs[p]))
	}
	args = append(args, created, updated)

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")
	_, err = t.tx.ExecContext(ctx,
		"INSERT INTO "+t.s.table+" ("+t.s.columns+") VALUES ("+placeholders+")", args...)
	return translateError(err)
}

func (t *sqliteTx) LinkProvider(ctx context.Context, accountID string, p provider.Name, providerID string) error {
	col, err := storage.ProviderColumn(p)
	if err != nil {
		return err
	}

	res, err := t.tx.ExecContext(ctx,
		"UPDATE "+t.s.table+" SET "+col+" = ?, updated_at = ? WHERE id = ? AND "+col+" IS NULL",
		providerID, t.s.now().UTC(), accountID)
	if err != nil {
		return translateError(err)
	}
	return t.guardedUpdateResult(ctx, res, accountID, p.String()+" already linked")
}

func (t *sqliteTx) SetPasswordHash(ctx context.Context, accountID string, hash []byte) error {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE "+t.s.table+" SET password_hash = ?, updated_at = ? WHERE id = ?",
		hash, t.s.now().UTC(), accountID)
	if err != nil {
		return translateError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return translateError(err)
	}
	if n == 0 {
		return errors.Mark(storage.ErrNotFound, 0)
	}
	return nil
}

// guardedUpdateResult tells a missing account apart from a guard that did not
// hold when an update touched no rows.
func (t *sqliteTx) guardedUpdateResult(ctx context.Context, res sql.Result, accountID, reason string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return translateError(err)
	}
	if n > 0 {
		return nil
	}
	var one int
	err = t.tx.QueryRowContext(ctx, "SELECT 1 FROM "+t.s.table+" WHERE id = ?", accountID).Scan(&one)
	if err != nil {
		return translateError(err)
	}
	return errors.Mark(storage.ErrAlreadyExists, 0).Append(reason)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (*account.Account, error) {
	var (
		acct  account.Account
		roles string
		ids   = make([]sql.NullString, len(provider.All()))
	)
	dest := []any{&acct.ID, &acct.Email, &roles, &acct.PasswordHash}
	for i := range ids {
		dest = append(dest, &ids[i])
	}
	dest = append(dest, &acct.CreatedAt, &acct.UpdatedAt)

	if err := row.Scan(dest...); err != nil {
		return nil, translateError(err)
	}
	if err := json.Unmarshal([]byte(roles), &acct.Roles); err != nil {
		return nil, errors.WrapPrefix(err, "invalid roles for account "+acct.ID, 0)
	}
	acct.ProviderIDs = map[provider.Name]string{}
	for i, p := range provider.All() {
		if ids[i].Valid {
			acct.ProviderIDs[p] = ids[i].String
		}
	}
	return &acct, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Mark(storage.ErrNotFound, 1)
	}
	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) && sqlErr.Code == sqlite3.ErrConstraint {
		switch sqlErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return errors.Mark(storage.ErrAlreadyExists, 1).Append(sqlErr.Error())
		}
	}
	return storage.Unavailable(err)
}
