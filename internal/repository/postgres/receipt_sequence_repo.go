// internal/repository/postgres/receipt_sequence_repo.go
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReceiptSequenceRepository struct {
	db *pgxpool.Pool
}

func NewReceiptSequenceRepository(db *pgxpool.Pool) *ReceiptSequenceRepository {
	return &ReceiptSequenceRepository{db: db}
}

// NextWithTx increments and returns the counter for a (month-year, code)
// pair, creating it at 1 when absent. The row lock taken by the SELECT keeps
// concurrent allocations strictly sequential.
func (r *ReceiptSequenceRepository) NextWithTx(ctx context.Context, tx pgx.Tx, mmYY, transactionCode string) (int, error) {
	var current int
	err := tx.QueryRow(ctx, `
		SELECT last_sequence FROM receipt_sequences
		WHERE mm_yy = $1 AND transaction_code = $2
		FOR UPDATE
	`, mmYY, transactionCode).Scan(&current)

	if err == pgx.ErrNoRows {
		err = tx.QueryRow(ctx, `
			INSERT INTO receipt_sequences (mm_yy, transaction_code, last_sequence)
			VALUES ($1, $2, 1)
			RETURNING last_sequence
		`, mmYY, transactionCode).Scan(&current)
		if err != nil {
			return 0, fmt.Errorf("failed to create receipt sequence: %w", err)
		}
		return current, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to lock receipt sequence: %w", err)
	}

	next := current + 1
	if _, err := tx.Exec(ctx, `
		UPDATE receipt_sequences SET last_sequence = $1
		WHERE mm_yy = $2 AND transaction_code = $3
	`, next, mmYY, transactionCode); err != nil {
		return 0, fmt.Errorf("failed to advance receipt sequence: %w", err)
	}
	return next, nil
}
