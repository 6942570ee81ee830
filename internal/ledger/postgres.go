package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/theleanbow/meroshare-automation/internal/dbx"
)

// PostgresRepository stores the ledger in the history table. Replace runs
// in one transaction so readers only ever see a complete snapshot, matching
// the JSON implementation's atomic rewrite.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Load(ctx context.Context) ([]Entry, error) {
	query :=
		`SELECT company, boid, username, fullname, units, date,
		        COALESCE(status_name, ''), COALESCE(remark, '')
		 FROM history
		 ORDER BY date
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Company, &e.BOID, &e.Username, &e.FullName,
			&e.Units, &e.Date, &e.StatusName, &e.Remark); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

func (r *PostgresRepository) Append(ctx context.Context, entry Entry) error {
	query :=
		`INSERT INTO history (company, boid, username, fullname, units, date, status_name, remark)
		 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''))
		 `

	_, err := r.db.ExecContext(ctx, query, entry.Company, entry.BOID,
		entry.Username, entry.FullName, entry.Units, entry.Date,
		entry.StatusName, entry.Remark)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Replace(ctx context.Context, entries []Entry) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM history`); err != nil {
			return fmt.Errorf("db error: %w", err)
		}

		query :=
			`INSERT INTO history (company, boid, username, fullname, units, date, status_name, remark)
			 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''))
			 `
		for _, e := range entries {
			if _, err := tx.ExecContext(ctx, query, e.Company, e.BOID,
				e.Username, e.FullName, e.Units, e.Date, e.StatusName, e.Remark); err != nil {
				return fmt.Errorf("db error: %w", err)
			}
		}
		return nil
	})
}
