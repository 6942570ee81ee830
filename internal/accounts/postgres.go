package accounts

import (
	"context"
	"fmt"

	"github.com/theleanbow/meroshare-automation/internal/common"
	"github.com/theleanbow/meroshare-automation/internal/dbx"
)

// PostgresRepository stores accounts in the accounts table. Secret columns
// hold the vault's ciphertext encoding, identical to the JSON file form.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context) ([]Account, error) {
	query :=
		`SELECT id, fullname, boid, dp_id, username, password, crn_number, pin
		 FROM accounts
		 ORDER BY created_at
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var accs []Account
	for rows.Next() {
		var acc Account
		if err := rows.Scan(&acc.ID, &acc.FullName, &acc.BOID, &acc.DPID,
			&acc.Username, &acc.Password, &acc.CRNNumber, &acc.PIN); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		accs = append(accs, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return accs, nil
}

func (r *PostgresRepository) Add(ctx context.Context, acc Account) error {
	query :=
		`INSERT INTO accounts (id, fullname, boid, dp_id, username, password, crn_number, pin)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 `

	_, err := r.db.ExecContext(ctx, query, acc.ID, acc.FullName, acc.BOID,
		acc.DPID, acc.Username, acc.Password, acc.CRNNumber, acc.PIN)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Remove(ctx context.Context, id string) error {
	query := `DELETE FROM accounts WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: account %s", common.ErrNotFound, id)
	}
	return nil
}
