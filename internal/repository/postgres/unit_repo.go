// internal/repository/postgres/unit_repo.go
package postgres

import (
	"context"
	"fmt"

	"sooq-service/internal/domain/pool"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UnitRepository struct {
	db *pgxpool.Pool
}

func NewUnitRepository(db *pgxpool.Pool) *UnitRepository {
	return &UnitRepository{db: db}
}

// FindEligible loads the requested units that belong to the participant's
// purchase requests and are not yet held by any pool.
func (r *UnitRepository) FindEligible(ctx context.Context, unitIDs []int64, participantID int64) ([]pool.PreciousItemUnit, error) {
	query := `
		SELECT u.id, u.purchase_request_id, u.pool_id, u.system_serial_number
		FROM precious_item_units u
		JOIN purchase_requests pr ON pr.id = u.purchase_request_id
		WHERE u.id = ANY($1)
		  AND pr.business_id = $2
		  AND u.pool_id IS NULL
	`

	rows, err := r.db.Query(ctx, query, unitIDs, participantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load precious item units: %w", err)
	}
	defer rows.Close()

	var units []pool.PreciousItemUnit
	for rows.Next() {
		var u pool.PreciousItemUnit
		if err := rows.Scan(&u.ID, &u.PurchaseRequestID, &u.PoolID, &u.SystemSerialNumber); err != nil {
			return nil, fmt.Errorf("failed to scan precious item unit: %w", err)
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

// SerialConflicts returns the serial numbers already carried by units other
// than the ones being assigned.
func (r *UnitRepository) SerialConflicts(ctx context.Context, serials []string, excludeUnitIDs []int64) ([]string, error) {
	query := `
		SELECT system_serial_number
		FROM precious_item_units
		WHERE system_serial_number = ANY($1)
		  AND NOT (id = ANY($2))
	`

	rows, err := r.db.Query(ctx, query, serials, excludeUnitIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to check serial numbers: %w", err)
	}
	defer rows.Close()

	var conflicts []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan serial number: %w", err)
		}
		conflicts = append(conflicts, s)
	}
	return conflicts, rows.Err()
}

// AssignToPoolWithTx links the units to the pool, writing any serial numbers
// supplied with the assignment, and returns how many units were actually
// taken. The pool_id IS NULL guard makes the update lose against a concurrent
// assignment instead of overwriting it; callers compare the count against the
// assignment list and roll back on a shortfall.
func (r *UnitRepository) AssignToPoolWithTx(ctx context.Context, tx pgx.Tx, poolID int64, assignments []pool.UnitAssignment) (int64, error) {
	withSerial := `UPDATE precious_item_units SET pool_id = $1, system_serial_number = $2 WHERE id = $3 AND pool_id IS NULL`
	withoutSerial := `UPDATE precious_item_units SET pool_id = $1 WHERE id = $2 AND pool_id IS NULL`

	var assigned int64
	for _, a := range assignments {
		var (
			tag pgconn.CommandTag
			err error
		)
		if a.SystemSerialNumber != nil && *a.SystemSerialNumber != "" {
			tag, err = tx.Exec(ctx, withSerial, poolID, *a.SystemSerialNumber, a.ID)
		} else {
			tag, err = tx.Exec(ctx, withoutSerial, poolID, a.ID)
		}
		if err != nil {
			return assigned, fmt.Errorf("failed to assign unit %d: %w", a.ID, err)
		}
		assigned += tag.RowsAffected()
	}
	return assigned, nil
}

// ReleaseFromPoolWithTx unlinks every unit of the participant's purchase
// requests from the pool. Matching is by purchase request rather than by
// unit, so all units taken for those requests come back together.
func (r *UnitRepository) ReleaseFromPoolWithTx(ctx context.Context, tx pgx.Tx, poolID int64, purchaseRequestIDs []int64, participantID int64) error {
	query := `
		UPDATE precious_item_units u
		SET pool_id = NULL
		FROM purchase_requests pr
		WHERE pr.id = u.purchase_request_id
		  AND u.pool_id = $1
		  AND u.purchase_request_id = ANY($2)
		  AND pr.business_id = $3
	`

	if _, err := tx.Exec(ctx, query, poolID, purchaseRequestIDs, participantID); err != nil {
		return fmt.Errorf("failed to release units: %w", err)
	}
	return nil
}
