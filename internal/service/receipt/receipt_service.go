// internal/service/receipt/receipt_service.go
package receipt

import (
	"context"
	"fmt"
	"strings"
	"time"

	xerrors "sooq-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// SequenceRepository allocates monotonically increasing receipt counters per
// (month-year, transaction-code) pair. NextWithTx must lock the counter row
// so concurrent allocations never collide.
type SequenceRepository interface {
	NextWithTx(ctx context.Context, tx pgx.Tx, mmYY, transactionCode string) (int, error)
}

// DB begins transactions. Satisfied by *postgres.DB.
type DB interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
}

type Service struct {
	repo   SequenceRepository
	db     DB
	logger *zap.Logger
}

func NewService(repo SequenceRepository, db DB, logger *zap.Logger) *Service {
	return &Service{repo: repo, db: db, logger: logger}
}

// initials compresses a business name into its uppercase initials: "Al Noor
// Jewelry" becomes "ANJ".
func initials(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		for _, r := range word {
			b.WriteRune(r)
			break
		}
	}
	return strings.ToUpper(b.String())
}

// GenerateReceiptNumber issues the next receipt number for a transaction
// code, formatted as {code}{business initials}{MMYY}{seq} with the sequence
// zero-padded to three digits and restarting each month.
func (s *Service) GenerateReceiptNumber(ctx context.Context, transactionCode, businessName string, at time.Time) (string, error) {
	if transactionCode == "" {
		return "", xerrors.Validationf("transaction code is required")
	}

	mmYY := at.Format("0106")

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	seq, err := s.repo.NextWithTx(ctx, tx, mmYY, transactionCode)
	if err != nil {
		return "", fmt.Errorf("failed to allocate receipt sequence: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	number := fmt.Sprintf("%s%s%s%03d", transactionCode, initials(businessName), mmYY, seq)
	s.logger.Debug("receipt number issued",
		zap.String("transaction_code", transactionCode),
		zap.String("receipt_number", number),
	)
	return number, nil
}
