// Package archive keeps point-in-time snapshots of the dashboard and
// analytics in a local SQLite file, so history survives changes on the
// remote side.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yndnr/fintrack-go/internal/core/domain"
)

// Snapshot is one export of the remote state.
type Snapshot struct {
	TakenAt   time.Time
	Server    string
	Summary   domain.Summary
	Analytics domain.Analytics
}

// SnapshotInfo is a stored snapshot without its child rows.
type SnapshotInfo struct {
	ID           int64        `json:"id" yaml:"id"`
	TakenAt      time.Time    `json:"taken_at" yaml:"taken_at"`
	Server       string       `json:"server" yaml:"server"`
	Balance      domain.Money `json:"balance" yaml:"balance"`
	Transactions int          `json:"transactions" yaml:"transactions"`
	Categories   int          `json:"categories" yaml:"categories"`
}

// Archive is an open snapshot database.
type Archive struct {
	db *sql.DB
}

// Open opens or creates the archive at path and migrates its schema.
func Open(path string) (*Archive, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create archive directory: %w", err)
		}
	}
	if err := runMigrations(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	// one writer; sqlite serializes anyway
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping archive: %w", err)
	}
	return &Archive{db: db}, nil
}

func (a *Archive) Close() error {
	return a.db.Close()
}

// Write stores s and returns its id. Either the whole snapshot is
// stored or nothing is.
func (a *Archive) Write(ctx context.Context, s Snapshot) (int64, error) {
	if s.TakenAt.IsZero() {
		s.TakenAt = time.Now()
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (taken_at, server, total_income_cents, total_expense_cents, balance_cents)
		 VALUES (?, ?, ?, ?, ?)`,
		s.TakenAt.UTC().Format(time.RFC3339Nano), s.Server,
		int64(s.Summary.TotalIncome), int64(s.Summary.TotalExpense), int64(s.Summary.Balance))
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("snapshot id: %w", err)
	}

	for _, t := range s.Summary.RecentTransactions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO snapshot_transactions (snapshot_id, remote_id, type, amount_cents, category, note, date)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, t.ID, string(t.Type), int64(t.Amount), t.Category, t.Note, t.Day()); err != nil {
			return 0, fmt.Errorf("insert transaction: %w", err)
		}
	}
	for _, m := range s.Analytics.MonthlyData {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO snapshot_monthly (snapshot_id, month, income_cents, expense_cents) VALUES (?, ?, ?, ?)`,
			id, m.Month, int64(m.Income), int64(m.Expense)); err != nil {
			return 0, fmt.Errorf("insert monthly data: %w", err)
		}
	}
	for _, c := range s.Analytics.CategoryData {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO snapshot_categories (snapshot_id, category, amount_cents) VALUES (?, ?, ?)`,
			id, c.Category, int64(c.Amount)); err != nil {
			return 0, fmt.Errorf("insert category data: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit snapshot: %w", err)
	}
	return id, nil
}

// List returns all snapshots, newest first.
func (a *Archive) List(ctx context.Context) ([]SnapshotInfo, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT s.id, s.taken_at, s.server, s.balance_cents,
		       (SELECT COUNT(*) FROM snapshot_transactions t WHERE t.snapshot_id = s.id),
		       (SELECT COUNT(*) FROM snapshot_categories c WHERE c.snapshot_id = s.id)
		FROM snapshots s
		ORDER BY s.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	infos := []SnapshotInfo{}
	for rows.Next() {
		var (
			info    SnapshotInfo
			takenAt string
			balance int64
		)
		if err := rows.Scan(&info.ID, &takenAt, &info.Server, &balance, &info.Transactions, &info.Categories); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		info.TakenAt, err = time.Parse(time.RFC3339Nano, takenAt)
		if err != nil {
			return nil, fmt.Errorf("parse snapshot time %q: %w", takenAt, err)
		}
		info.Balance = domain.Money(balance)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Load reads a stored snapshot back.
func (a *Archive) Load(ctx context.Context, id int64) (*Snapshot, error) {
	var (
		s                        Snapshot
		takenAt                  string
		income, expense, balance int64
	)
	err := a.db.QueryRowContext(ctx,
		`SELECT taken_at, server, total_income_cents, total_expense_cents, balance_cents FROM snapshots WHERE id = ?`, id).
		Scan(&takenAt, &s.Server, &income, &expense, &balance)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %d: %w", id, err)
	}
	if s.TakenAt, err = time.Parse(time.RFC3339Nano, takenAt); err != nil {
		return nil, fmt.Errorf("parse snapshot time %q: %w", takenAt, err)
	}
	s.Summary.TotalIncome = domain.Money(income)
	s.Summary.TotalExpense = domain.Money(expense)
	s.Summary.Balance = domain.Money(balance)
	s.Summary.RecentTransactions = []domain.Transaction{}
	s.Analytics.MonthlyData = []domain.MonthlyPoint{}
	s.Analytics.CategoryData = []domain.CategoryTotal{}

	if err := a.each(ctx, `SELECT remote_id, type, amount_cents, category, note, date FROM snapshot_transactions WHERE snapshot_id = ? ORDER BY rowid`, id,
		func(rows *sql.Rows) error {
			var t domain.Transaction
			var amount int64
			if err := rows.Scan(&t.ID, &t.Type, &amount, &t.Category, &t.Note, &t.Date); err != nil {
				return err
			}
			t.Amount = domain.Money(amount)
			s.Summary.RecentTransactions = append(s.Summary.RecentTransactions, t)
			return nil
		}); err != nil {
		return nil, err
	}
	if err := a.each(ctx, `SELECT month, income_cents, expense_cents FROM snapshot_monthly WHERE snapshot_id = ? ORDER BY rowid`, id,
		func(rows *sql.Rows) error {
			var m domain.MonthlyPoint
			var in, out int64
			if err := rows.Scan(&m.Month, &in, &out); err != nil {
				return err
			}
			m.Income, m.Expense = domain.Money(in), domain.Money(out)
			s.Analytics.MonthlyData = append(s.Analytics.MonthlyData, m)
			return nil
		}); err != nil {
		return nil, err
	}
	if err := a.each(ctx, `SELECT category, amount_cents FROM snapshot_categories WHERE snapshot_id = ? ORDER BY rowid`, id,
		func(rows *sql.Rows) error {
			var c domain.CategoryTotal
			var amount int64
			if err := rows.Scan(&c.Category, &amount); err != nil {
				return err
			}
			c.Amount = domain.Money(amount)
			s.Analytics.CategoryData = append(s.Analytics.CategoryData, c)
			return nil
		}); err != nil {
		return nil, err
	}
	return &s, nil
}

func (a *Archive) each(ctx context.Context, query string, id int64, fn func(*sql.Rows) error) error {
	rows, err := a.db.QueryContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("query snapshot %d: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return fmt.Errorf("scan snapshot %d: %w", id, err)
		}
	}
	return rows.Err()
}
