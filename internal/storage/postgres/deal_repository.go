package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/deals/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

type dealRepository struct {
	db *sql.DB
}

// NewDealRepository создаёт PostgreSQL-реализацию DealRepository.
func NewDealRepository(store *Store) domain.DealRepository {
	return &dealRepository{db: store.DB()}
}

func (r *dealRepository) Create(deal domain.Deal) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO deals (
			token, product_id, sku, product_name,
			cost_basis_minor, markup_fraction, offer_price_minor,
			quantity, shipping_fee_minor, expires_at, status,
			buyer_first_name, buyer_last_name, buyer_email, buyer_phone,
			address_line1, address_line2, address_city, address_region, address_postal_code,
			external_payment_ref, downstream_order_ref,
			version, created_at, updated_at
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,
			$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25
		)
	`,
		deal.Token, deal.ProductID, deal.SKU, deal.ProductName,
		deal.CostBasisMinor, deal.MarkupFraction, deal.OfferPriceMinor,
		deal.Quantity, deal.ShippingFeeMinor, deal.ExpiresAt, string(deal.Status),
		deal.Buyer.FirstName, deal.Buyer.LastName, deal.Buyer.Email, deal.Buyer.Phone,
		deal.Address.Line1, deal.Address.Line2, deal.Address.City, deal.Address.Region, deal.Address.PostalCode,
		deal.ExternalPaymentRef, deal.DownstreamOrderRef,
		deal.Version, deal.CreatedAt, deal.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDealExists
		}
		return fmt.Errorf("insert deal: %w", err)
	}

	return nil
}

func (r *dealRepository) Get(token string) (domain.Deal, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		deal   domain.Deal
		status string
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT token, product_id, sku, product_name,
		       cost_basis_minor, markup_fraction, offer_price_minor,
		       quantity, shipping_fee_minor, expires_at, status,
		       buyer_first_name, buyer_last_name, buyer_email, buyer_phone,
		       address_line1, address_line2, address_city, address_region, address_postal_code,
		       external_payment_ref, downstream_order_ref,
		       version, created_at, updated_at
		FROM deals
		WHERE token = $1
	`, token).Scan(
		&deal.Token, &deal.ProductID, &deal.SKU, &deal.ProductName,
		&deal.CostBasisMinor, &deal.MarkupFraction, &deal.OfferPriceMinor,
		&deal.Quantity, &deal.ShippingFeeMinor, &deal.ExpiresAt, &status,
		&deal.Buyer.FirstName, &deal.Buyer.LastName, &deal.Buyer.Email, &deal.Buyer.Phone,
		&deal.Address.Line1, &deal.Address.Line2, &deal.Address.City, &deal.Address.Region, &deal.Address.PostalCode,
		&deal.ExternalPaymentRef, &deal.DownstreamOrderRef,
		&deal.Version, &deal.CreatedAt, &deal.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Deal{}, domain.ErrDealNotFound
		}
		return domain.Deal{}, fmt.Errorf("select deal: %w", err)
	}
	deal.Status = domain.DealStatus(status)

	return deal, nil
}

func (r *dealRepository) Save(deal domain.Deal) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE deals
		SET status = $1,
		    buyer_first_name = $2,
		    buyer_last_name = $3,
		    buyer_email = $4,
		    buyer_phone = $5,
		    address_line1 = $6,
		    address_line2 = $7,
		    address_city = $8,
		    address_region = $9,
		    address_postal_code = $10,
		    external_payment_ref = $11,
		    downstream_order_ref = $12,
		    shipping_fee_minor = $13,
		    version = version + 1,
		    updated_at = $14
		WHERE token = $15
		  AND version = $16
	`,
		string(deal.Status),
		deal.Buyer.FirstName, deal.Buyer.LastName, deal.Buyer.Email, deal.Buyer.Phone,
		deal.Address.Line1, deal.Address.Line2, deal.Address.City, deal.Address.Region, deal.Address.PostalCode,
		deal.ExternalPaymentRef, deal.DownstreamOrderRef,
		deal.ShippingFeeMinor,
		deal.UpdatedAt,
		deal.Token,
		deal.Version,
	)
	if err != nil {
		return fmt.Errorf("update deal: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		exists, err := r.dealExists(ctx, deal.Token)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrDealNotFound
		}
		return domain.ErrDealVersionConflict
	}

	return nil
}

func (r *dealRepository) dealExists(ctx context.Context, token string) (bool, error) {
	var found string
	err := r.db.QueryRowContext(ctx, `SELECT token FROM deals WHERE token = $1`, token).Scan(&found)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check deal exists: %w", err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.DealRepository = (*dealRepository)(nil)
