package inventory

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/ecommers/orderflow/internal/domain"
)

var (
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrInsufficientReserved = errors.New("insufficient reserved stock to release")
)

type InventoryRepository struct {
	db *sql.DB
}

func NewInventoryRepository(db *sql.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

func (r *InventoryRepository) ListAll(ctx context.Context) ([]domain.StockLevel, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT sku_code, available, reserved
		FROM stock
		ORDER BY sku_code
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := []domain.StockLevel{}
	for rows.Next() {
		var stock domain.StockLevel
		if err := rows.Scan(&stock.SkuCode, &stock.Available, &stock.Reserved); err != nil {
			return nil, err
		}
		items = append(items, stock)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func (r *InventoryRepository) GetStock(ctx context.Context, skuCode string) (*domain.StockLevel, error) {
	stock := &domain.StockLevel{}

	err := r.db.QueryRowContext(ctx, `
		SELECT sku_code, available, reserved
		FROM stock
		WHERE sku_code = $1
	`, skuCode).Scan(&stock.SkuCode, &stock.Available, &stock.Reserved)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return stock, nil
}

// InStock reports availability for each requested SKU in request order.
// Unknown SKUs are reported as out of stock.
func (r *InventoryRepository) InStock(ctx context.Context, skuCodes []string) ([]domain.StockAvailability, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT sku_code, available
		FROM stock
		WHERE sku_code = ANY($1)
	`, pq.Array(skuCodes))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	available := make(map[string]int, len(skuCodes))
	for rows.Next() {
		var sku string
		var qty int
		if err := rows.Scan(&sku, &qty); err != nil {
			return nil, err
		}
		available[sku] = qty
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]domain.StockAvailability, len(skuCodes))
	for i, sku := range skuCodes {
		result[i] = domain.StockAvailability{SkuCode: sku, InStock: available[sku] > 0}
	}
	return result, nil
}

func (r *InventoryRepository) Reserve(ctx context.Context, skuCode string, quantity int) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE stock
		SET available = available - $2, reserved = reserved + $2
		WHERE sku_code = $1 AND available >= $2
	`, skuCode, quantity)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrInsufficientStock
	}

	return nil
}

func (r *InventoryRepository) Release(ctx context.Context, skuCode string, quantity int) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE stock
		SET available = available + $2, reserved = reserved - $2
		WHERE sku_code = $1 AND reserved >= $2
	`, skuCode, quantity)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrInsufficientReserved
	}

	return nil
}
