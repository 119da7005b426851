package receipt

import (
	"context"
	"testing"
	"time"

	xerrors "sooq-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTx struct {
	pgx.Tx
	committed bool
}

func (t *fakeTx) Commit(ctx context.Context) error   { t.committed = true; return nil }
func (t *fakeTx) Rollback(ctx context.Context) error { return nil }

type fakeDB struct{}

func (d *fakeDB) BeginTx(ctx context.Context) (pgx.Tx, error) { return &fakeTx{}, nil }

type fakeSequenceRepo struct {
	counters map[string]int
}

func (r *fakeSequenceRepo) NextWithTx(ctx context.Context, tx pgx.Tx, mmYY, code string) (int, error) {
	if r.counters == nil {
		r.counters = make(map[string]int)
	}
	key := mmYY + ":" + code
	r.counters[key]++
	return r.counters[key], nil
}

func TestGenerateReceiptNumber(t *testing.T) {
	svc := NewService(&fakeSequenceRepo{}, &fakeDB{}, zap.NewNop())
	at := time.Date(2025, time.March, 21, 10, 0, 0, 0, time.UTC)

	got, err := svc.GenerateReceiptNumber(context.Background(), "SAL", "Al Noor Jewelry", at)
	require.NoError(t, err)
	assert.Equal(t, "SALANJ0325001", got)

	got, err = svc.GenerateReceiptNumber(context.Background(), "SAL", "Al Noor Jewelry", at)
	require.NoError(t, err)
	assert.Equal(t, "SALANJ0325002", got)
}

func TestGenerateReceiptNumber_SequencesPerCodeAndMonth(t *testing.T) {
	svc := NewService(&fakeSequenceRepo{}, &fakeDB{}, zap.NewNop())
	march := time.Date(2025, time.March, 21, 0, 0, 0, 0, time.UTC)
	april := time.Date(2025, time.April, 2, 0, 0, 0, 0, time.UTC)

	first, err := svc.GenerateReceiptNumber(context.Background(), "SAL", "Al Noor Jewelry", march)
	require.NoError(t, err)
	assert.Equal(t, "SALANJ0325001", first)

	// A different transaction code keeps its own counter.
	other, err := svc.GenerateReceiptNumber(context.Background(), "PAY", "Al Noor Jewelry", march)
	require.NoError(t, err)
	assert.Equal(t, "PAYANJ0325001", other)

	// The counter restarts with the month.
	next, err := svc.GenerateReceiptNumber(context.Background(), "SAL", "Al Noor Jewelry", april)
	require.NoError(t, err)
	assert.Equal(t, "SALANJ0425001", next)
}

func TestGenerateReceiptNumber_RequiresCode(t *testing.T) {
	svc := NewService(&fakeSequenceRepo{}, &fakeDB{}, zap.NewNop())

	_, err := svc.GenerateReceiptNumber(context.Background(), "", "Al Noor Jewelry", time.Now())
	require.Error(t, err)
	assert.True(t, xerrors.IsValidation(err))
}

func TestInitials(t *testing.T) {
	assert.Equal(t, "ANJ", initials("Al Noor Jewelry"))
	assert.Equal(t, "G", initials("goldsmith"))
	assert.Equal(t, "", initials(""))
}
