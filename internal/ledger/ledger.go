// Package ledger moves product stock inside a document-store transaction.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Noble200/nose-sub001/internal/domain"
	"github.com/Noble200/nose-sub001/internal/store"
)

// Ledger applies stock movements. The zero value uses time.Now.
type Ledger struct {
	Now func() time.Time
}

func New() *Ledger {
	return &Ledger{Now: time.Now}
}

func (l *Ledger) now() time.Time {
	if l == nil || l.Now == nil {
		return time.Now().UTC()
	}
	return l.Now().UTC()
}

// Product reads a product through tx.
func (l *Ledger) Product(ctx context.Context, tx store.Tx, productID string) (domain.Product, error) {
	var product domain.Product
	if err := tx.Get(ctx, domain.CollectionProducts, productID, &product); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Product{}, fmt.Errorf("%w: %s", domain.ErrProductNotFound, productID)
		}
		return domain.Product{}, err
	}
	product.ID = productID
	return product, nil
}

// Increment adds qty to the product's stock.
func (l *Ledger) Increment(ctx context.Context, tx store.Tx, productID string, qty decimal.Decimal) (domain.Product, error) {
	if !qty.IsPositive() {
		return domain.Product{}, fmt.Errorf("%w: increment %s", domain.ErrInvalidQuantity, qty)
	}
	product, err := l.Product(ctx, tx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	return l.write(ctx, tx, product, product.Stock.Add(qty))
}

// Deduct removes qty from the product's stock, refusing to go below zero.
func (l *Ledger) Deduct(ctx context.Context, tx store.Tx, productID string, qty decimal.Decimal) (domain.Product, error) {
	if !qty.IsPositive() {
		return domain.Product{}, fmt.Errorf("%w: deduct %s", domain.ErrInvalidQuantity, qty)
	}
	product, err := l.Product(ctx, tx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	if qty.GreaterThan(product.Stock) {
		return domain.Product{}, &domain.InsufficientStockError{
			ProductID: productID,
			Available: product.Stock,
			Requested: qty,
		}
	}
	return l.write(ctx, tx, product, product.Stock.Sub(qty))
}

func (l *Ledger) write(ctx context.Context, tx store.Tx, product domain.Product, stock decimal.Decimal) (domain.Product, error) {
	now := l.now()
	if err := tx.Update(ctx, domain.CollectionProducts, product.ID, map[string]any{
		"stock":     stock,
		"updatedAt": now,
	}); err != nil {
		return domain.Product{}, err
	}
	product.Stock = stock
	product.UpdatedAt = now
	return product, nil
}
