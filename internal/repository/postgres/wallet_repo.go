// internal/repository/postgres/wallet_repo.go
package postgres

import (
	"context"
	"fmt"

	"sooq-service/internal/domain/wallet"
	xerrors "sooq-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type WalletRepository struct {
	db *pgxpool.Pool
}

func NewWalletRepository(db *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{db: db}
}

// FindByBusinessID retrieves a business's wallet.
func (r *WalletRepository) FindByBusinessID(ctx context.Context, businessID int64) (*wallet.Wallet, error) {
	query := `SELECT id, business_id, balance, updated_at FROM wallets WHERE business_id = $1`
	return r.scanWallet(r.db.QueryRow(ctx, query, businessID))
}

// FindByBusinessIDForUpdate locks and retrieves a wallet inside a
// transaction so concurrent balance mutations serialize.
func (r *WalletRepository) FindByBusinessIDForUpdate(ctx context.Context, tx pgx.Tx, businessID int64) (*wallet.Wallet, error) {
	query := `SELECT id, business_id, balance, updated_at FROM wallets WHERE business_id = $1 FOR UPDATE`
	return r.scanWallet(tx.QueryRow(ctx, query, businessID))
}

func (r *WalletRepository) scanWallet(row pgx.Row) (*wallet.Wallet, error) {
	var w wallet.Wallet
	err := row.Scan(&w.ID, &w.BusinessID, &w.Balance, &w.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan wallet: %w", err)
	}
	return &w, nil
}

// UpdateBalanceWithTx writes a new balance under the caller's transaction.
func (r *WalletRepository) UpdateBalanceWithTx(ctx context.Context, tx pgx.Tx, walletID int64, balance decimal.Decimal) error {
	query := `UPDATE wallets SET balance = $1, updated_at = NOW() WHERE id = $2`

	tag, err := tx.Exec(ctx, query, balance, walletID)
	if err != nil {
		return fmt.Errorf("failed to update wallet balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// InsertTransactionWithTx records a balance movement.
func (r *WalletRepository) InsertTransactionWithTx(ctx context.Context, tx pgx.Tx, t *wallet.Transaction) error {
	query := `
		INSERT INTO wallet_transactions (
			reference, from_business_id, to_business_id, profit_distribution_id,
			transaction_type, status, amount, previous_balance, current_balance
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	err := tx.QueryRow(
		ctx, query,
		t.Reference, t.FromBusinessID, t.ToBusinessID, t.ProfitDistributionID,
		t.TransactionType, t.Status, t.Amount, t.PreviousBalance, t.CurrentBalance,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert wallet transaction: %w", err)
	}
	return nil
}
