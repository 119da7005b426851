// internal/service/profit/distribution_service.go
package profit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"sooq-service/internal/domain/sale"
	"sooq-service/internal/domain/wallet"
	xerrors "sooq-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SaleRepository persists stock sales.
type SaleRepository interface {
	InsertWithTx(ctx context.Context, tx pgx.Tx, s *sale.StockSale) error
	FindByID(ctx context.Context, id int64) (*sale.StockSale, error)
	ListByManufacturingRequest(ctx context.Context, manufacturingRequestID int64) ([]sale.StockSale, error)
}

// ManufacturingRepository resolves the funding facts of a manufacturing
// request needed to split a sale.
type ManufacturingRepository interface {
	Payment(ctx context.Context, manufacturingRequestID int64) (*sale.ManufacturingPayment, error)
	Contract(ctx context.Context, contractID int64) (*sale.MusharakahContract, error)
	Product(ctx context.Context, manufacturingRequestID, jewelryProductID int64) (*sale.ManufacturingProduct, error)
	Targets(ctx context.Context, manufacturingRequestID int64) ([]sale.ManufacturingTarget, error)
	JewelerBusinessID(ctx context.Context, manufacturingRequestID int64) (int64, error)
}

// DistributionRepository persists profit distribution rows.
type DistributionRepository interface {
	InsertWithTx(ctx context.Context, tx pgx.Tx, d *sale.ProfitDistribution) error
	ListBySale(ctx context.Context, saleID int64) ([]sale.ProfitDistribution, error)
}

// WalletRepository moves money. Balance reads for update take a row lock so
// concurrent distributions to the same business serialize.
type WalletRepository interface {
	FindByBusinessIDForUpdate(ctx context.Context, tx pgx.Tx, businessID int64) (*wallet.Wallet, error)
	UpdateBalanceWithTx(ctx context.Context, tx pgx.Tx, walletID int64, balance decimal.Decimal) error
	InsertTransactionWithTx(ctx context.Context, tx pgx.Tx, t *wallet.Transaction) error
}

// DB begins transactions. Satisfied by *postgres.DB.
type DB interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
}

type Service struct {
	saleRepo          SaleRepository
	manufacturingRepo ManufacturingRepository
	distributionRepo  DistributionRepository
	walletRepo        WalletRepository
	db                DB
	logger            *zap.Logger
}

func NewService(
	saleRepo SaleRepository,
	manufacturingRepo ManufacturingRepository,
	distributionRepo DistributionRepository,
	walletRepo WalletRepository,
	db DB,
	logger *zap.Logger,
) *Service {
	return &Service{
		saleRepo:          saleRepo,
		manufacturingRepo: manufacturingRepo,
		distributionRepo:  distributionRepo,
		walletRepo:        walletRepo,
		db:                db,
		logger:            logger,
	}
}

// RecordSale persists a stock sale and distributes its proceeds in one
// transaction: the sale row, every positive distribution row, and the wallet
// credit plus ledger transaction for every recipient with positive profit.
// Any failure rolls the whole sale back.
func (s *Service) RecordSale(ctx context.Context, req *sale.CreateSaleRequest) (*sale.SaleResponse, error) {
	facts, err := s.resolveFacts(ctx, req)
	if err != nil {
		return nil, err
	}
	distributions := CalculateDistributions(*facts)

	saleDate := time.Now().UTC()
	if req.SaleDate != nil {
		saleDate = *req.SaleDate
	}
	stockSale := &sale.StockSale{
		ManufacturingRequestID: req.ManufacturingRequestID,
		JewelryProductID:       req.JewelryProductID,
		Quantity:               req.Quantity,
		SalePrice:              req.SalePrice.Round(2),
		SaleDate:               saleDate,
		CustomerName:           nullString(req.CustomerName),
		Notes:                  nullString(req.Notes),
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.saleRepo.InsertWithTx(ctx, tx, stockSale); err != nil {
		return nil, fmt.Errorf("failed to insert sale: %w", err)
	}

	now := time.Now().UTC()
	for i := range distributions {
		d := &distributions[i]
		d.SaleID = stockSale.ID
		d.DistributedAt = now

		if err := s.distributionRepo.InsertWithTx(ctx, tx, d); err != nil {
			return nil, fmt.Errorf("failed to insert profit distribution: %w", err)
		}
		if !d.ProfitAmount.IsPositive() {
			continue
		}
		if err := s.creditRecipient(ctx, tx, facts.JewelerBusinessID, d); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("sale recorded",
		zap.Int64("sale_id", stockSale.ID),
		zap.String("source", string(facts.Source)),
		zap.String("sale_price", stockSale.SalePrice.String()),
		zap.Int("distributions", len(distributions)),
	)
	return &sale.SaleResponse{Sale: stockSale, Distributions: distributions}, nil
}

// creditRecipient moves the distribution's transaction amount into the
// recipient's wallet and writes the ledger row, both under the caller's
// transaction.
func (s *Service) creditRecipient(ctx context.Context, tx pgx.Tx, fromBusinessID int64, d *sale.ProfitDistribution) error {
	w, err := s.walletRepo.FindByBusinessIDForUpdate(ctx, tx, d.RecipientBusinessID)
	if err != nil {
		return fmt.Errorf("failed to load wallet for business %d: %w", d.RecipientBusinessID, err)
	}

	previous := w.Balance
	current := previous.Add(d.TransactionAmount)
	if err := s.walletRepo.UpdateBalanceWithTx(ctx, tx, w.ID, current); err != nil {
		return fmt.Errorf("failed to update wallet balance: %w", err)
	}

	t := &wallet.Transaction{
		Reference:            ulid.Make().String(),
		FromBusinessID:       fromBusinessID,
		ToBusinessID:         d.RecipientBusinessID,
		ProfitDistributionID: d.ID,
		TransactionType:      wallet.TypePayment,
		Status:               wallet.StatusSuccess,
		Amount:               d.TransactionAmount,
		PreviousBalance:      previous,
		CurrentBalance:       current,
	}
	if err := s.walletRepo.InsertTransactionWithTx(ctx, tx, t); err != nil {
		return fmt.Errorf("failed to insert wallet transaction: %w", err)
	}
	return nil
}

// resolveFacts loads the manufacturing request's funding shape into the
// calculator's input.
func (s *Service) resolveFacts(ctx context.Context, req *sale.CreateSaleRequest) (*SaleFacts, error) {
	payment, err := s.manufacturingRepo.Payment(ctx, req.ManufacturingRequestID)
	if err != nil {
		return nil, fmt.Errorf("manufacturing payment not found: %w", err)
	}

	product, err := s.manufacturingRepo.Product(ctx, req.ManufacturingRequestID, req.JewelryProductID)
	if err != nil {
		return nil, fmt.Errorf("manufacturing product not found: %w", err)
	}
	if product.Quantity <= 0 {
		return nil, xerrors.Validationf("manufacturing product %d has no requested quantity", req.JewelryProductID)
	}

	jewelerID, err := s.manufacturingRepo.JewelerBusinessID(ctx, req.ManufacturingRequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve jeweler: %w", err)
	}

	facts := &SaleFacts{
		Quantity:           req.Quantity,
		SalePrice:          req.SalePrice,
		Source:             payment.PaymentType,
		JewelerBusinessID:  jewelerID,
		MetalAmountPerUnit: product.MetalAmount,
		EstimatedPrice:     product.EstimatedPrice,
		RequestedQuantity:  product.Quantity,
	}

	switch payment.PaymentType {
	case sale.SourceMusharakah, sale.SourceMusharakahAndAsset:
		if !payment.MusharakahContractID.Valid {
			return nil, xerrors.Validationf("manufacturing request %d is musharakah funded but has no contract", req.ManufacturingRequestID)
		}
		contract, err := s.manufacturingRepo.Contract(ctx, payment.MusharakahContractID.Int64)
		if err != nil {
			return nil, fmt.Errorf("musharakah contract not found: %w", err)
		}
		facts.Contract = contract
	}

	if payment.PaymentType == sale.SourceMusharakahAndAsset {
		additional, err := s.additionalMaterialPrice(ctx, req.ManufacturingRequestID, req.Quantity)
		if err != nil {
			return nil, err
		}
		facts.AdditionalMaterialPrice = additional
	}
	return facts, nil
}

// additionalMaterialPrice prorates each extra-material allocation of a
// hybrid-funded request to the sold quantity and sums them.
func (s *Service) additionalMaterialPrice(ctx context.Context, manufacturingRequestID, soldQuantity int64) (decimal.Decimal, error) {
	targets, err := s.manufacturingRepo.Targets(ctx, manufacturingRequestID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load manufacturing targets: %w", err)
	}

	total := decimal.Zero
	qty := decimal.NewFromInt(soldQuantity)
	for _, t := range targets {
		if t.RequestedQuantity <= 0 {
			continue
		}
		perUnit := t.MetalAmount.Div(decimal.NewFromInt(t.RequestedQuantity))
		total = total.Add(perUnit.Mul(qty))
	}
	return total.Round(2), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// SalesForManufacturingRequest lists the sales recorded against one
// manufacturing request.
func (s *Service) SalesForManufacturingRequest(ctx context.Context, manufacturingRequestID int64) ([]sale.StockSale, error) {
	sales, err := s.saleRepo.ListByManufacturingRequest(ctx, manufacturingRequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	return sales, nil
}

// SaleWithDistributions loads a recorded sale and its distribution rows.
func (s *Service) SaleWithDistributions(ctx context.Context, saleID int64) (*sale.SaleResponse, error) {
	stockSale, err := s.saleRepo.FindByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	distributions, err := s.distributionRepo.ListBySale(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profit distributions: %w", err)
	}
	return &sale.SaleResponse{Sale: stockSale, Distributions: distributions}, nil
}
