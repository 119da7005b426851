// internal/repository/postgres/business_repo.go
package postgres

import (
	"context"
	"fmt"

	xerrors "sooq-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BusinessRepository struct {
	db *pgxpool.Pool
}

func NewBusinessRepository(db *pgxpool.Pool) *BusinessRepository {
	return &BusinessRepository{db: db}
}

// BusinessEmail resolves the contact email of a business.
func (r *BusinessRepository) BusinessEmail(ctx context.Context, businessID int64) (string, error) {
	query := `SELECT email FROM businesses WHERE id = $1`

	var email string
	err := r.db.QueryRow(ctx, query, businessID).Scan(&email)
	if err == pgx.ErrNoRows {
		return "", xerrors.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to find business email: %w", err)
	}
	return email, nil
}

// InvestorEmails lists the contact emails of active investor businesses.
func (r *BusinessRepository) InvestorEmails(ctx context.Context) ([]string, error) {
	query := `SELECT email FROM businesses WHERE business_type = 'investor' AND is_active = TRUE`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list investor emails: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("failed to scan email: %w", err)
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}

// BusinessName resolves a business's display name, used for receipt
// numbering.
func (r *BusinessRepository) BusinessName(ctx context.Context, businessID int64) (string, error) {
	query := `SELECT name FROM businesses WHERE id = $1`

	var name string
	err := r.db.QueryRow(ctx, query, businessID).Scan(&name)
	if err == pgx.ErrNoRows {
		return "", xerrors.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to find business: %w", err)
	}
	return name, nil
}
