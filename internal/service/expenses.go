package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Noble200/nose-sub001/internal/domain"
	"github.com/Noble200/nose-sub001/internal/jobs"
	"github.com/Noble200/nose-sub001/internal/store"
	"github.com/Noble200/nose-sub001/internal/xid"
)

// RecordExpense dispatches the wire request on its type.
func (s *Service) RecordExpense(ctx context.Context, req domain.ExpenseCreateRequest) (domain.Expense, error) {
	switch strings.ToLower(strings.TrimSpace(req.Type)) {
	case domain.ExpenseTypeProduct:
		return s.RecordProductSaleExpense(ctx, domain.ProductSaleExpenseRequest{
			ProductID:    req.ProductID,
			QuantitySold: req.QuantitySold,
			UnitPrice:    req.UnitPrice,
			Description:  req.Description,
			Category:     req.Category,
			Date:         req.Date,
			Notes:        req.Notes,
		})
	case domain.ExpenseTypeMisc:
		return s.RecordMiscExpense(ctx, domain.MiscExpenseRequest{
			Description: req.Description,
			Category:    req.Category,
			Amount:      req.Amount,
			Date:        req.Date,
			Notes:       req.Notes,
		})
	default:
		return domain.Expense{}, fmt.Errorf("%w: unknown expense type %q", domain.ErrInvalidInput, req.Type)
	}
}

// RecordProductSaleExpense deducts the sold quantity from stock and writes the expense in one
// transaction. When stock is insufficient nothing is written.
func (s *Service) RecordProductSaleExpense(ctx context.Context, req domain.ProductSaleExpenseRequest) (domain.Expense, error) {
	req.ProductID = strings.TrimSpace(req.ProductID)
	if err := s.check(req); err != nil {
		return domain.Expense{}, err
	}
	if !req.QuantitySold.IsPositive() {
		return domain.Expense{}, fmt.Errorf("%w: quantitySold %s", domain.ErrInvalidQuantity, req.QuantitySold)
	}
	if req.UnitPrice.IsNegative() {
		return domain.Expense{}, fmt.Errorf("%w: unitPrice must not be negative", domain.ErrInvalidInput)
	}
	date, err := s.optionalDate(req.Date)
	if err != nil {
		return domain.Expense{}, err
	}

	var expense domain.Expense
	var product domain.Product
	err = s.docs.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		updated, err := s.ledger.Deduct(ctx, tx, req.ProductID, req.QuantitySold)
		if err != nil {
			return err
		}
		product = updated

		description := strings.TrimSpace(req.Description)
		if description == "" {
			description = fmt.Sprintf("Sale of %s", updated.Name)
		}
		expense = domain.Expense{
			ID:           xid.New("exp"),
			Type:         domain.ExpenseTypeProduct,
			Description:  description,
			Category:     strings.TrimSpace(req.Category),
			Date:         date,
			ProductID:    req.ProductID,
			ProductName:  updated.Name,
			QuantitySold: req.QuantitySold,
			UnitPrice:    req.UnitPrice,
			TotalAmount:  req.QuantitySold.Mul(req.UnitPrice),
			Notes:        strings.TrimSpace(req.Notes),
			CreatedAt:    s.now(),
		}
		return tx.Set(ctx, domain.CollectionExpenses, expense.ID, expense)
	})
	if err != nil {
		return domain.Expense{}, err
	}

	s.logActivity(ctx, "expense_create", "expense", expense.ID,
		fmt.Sprintf("type=product,product=%s,quantity=%s,total=%s", product.ID, expense.QuantitySold, expense.TotalAmount))
	if product.BelowMinimum() {
		s.alertLowStock(ctx, product)
	}
	return expense, nil
}

func (s *Service) alertLowStock(ctx context.Context, product domain.Product) {
	err := s.alerts.EnqueueLowStock(ctx, jobs.LowStockPayload{
		ProductID:  product.ID,
		Name:       product.Name,
		Unit:       product.Unit,
		Stock:      product.Stock,
		MinStock:   product.MinStock,
		DetectedAt: s.now(),
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("productId", product.ID).Msg("failed to enqueue low stock alert")
	}
}

// RecordMiscExpense writes an expense that has no effect on stock.
func (s *Service) RecordMiscExpense(ctx context.Context, req domain.MiscExpenseRequest) (domain.Expense, error) {
	req.Description = strings.TrimSpace(req.Description)
	if err := s.check(req); err != nil {
		return domain.Expense{}, err
	}
	if req.Amount.IsNegative() {
		return domain.Expense{}, fmt.Errorf("%w: amount must not be negative", domain.ErrInvalidInput)
	}
	date, err := s.optionalDate(req.Date)
	if err != nil {
		return domain.Expense{}, err
	}

	expense := domain.Expense{
		Type:        domain.ExpenseTypeMisc,
		Description: req.Description,
		Category:    strings.TrimSpace(req.Category),
		Date:        date,
		TotalAmount: req.Amount,
		Notes:       strings.TrimSpace(req.Notes),
		CreatedAt:   s.now(),
	}
	id, err := s.docs.AddDocument(ctx, domain.CollectionExpenses, expense)
	if err != nil {
		return domain.Expense{}, err
	}
	expense.ID = id

	s.logActivity(ctx, "expense_create", "expense", id, fmt.Sprintf("type=misc,total=%s", expense.TotalAmount))
	return expense, nil
}

func (s *Service) GetExpense(ctx context.Context, id string) (domain.Expense, error) {
	var expense domain.Expense
	if err := s.docs.GetDocument(ctx, domain.CollectionExpenses, id, &expense); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Expense{}, fmt.Errorf("%w: %s", domain.ErrExpenseNotFound, id)
		}
		return domain.Expense{}, err
	}
	expense.ID = id
	return expense, nil
}

// ListExpenses returns every expense, or only those of expenseType when it is set.
func (s *Service) ListExpenses(ctx context.Context, expenseType string) ([]domain.Expense, error) {
	expenseType = strings.ToLower(strings.TrimSpace(expenseType))
	raws, err := s.docs.ListDocuments(ctx, domain.CollectionExpenses)
	if err != nil {
		return nil, err
	}
	all, err := decodeAll[domain.Expense](raws)
	if err != nil {
		return nil, err
	}
	if expenseType == "" {
		return all, nil
	}
	out := make([]domain.Expense, 0, len(all))
	for _, expense := range all {
		if expense.Type == expenseType {
			out = append(out, expense)
		}
	}
	return out, nil
}

// DeleteExpense removes the expense document. A product sale's stock deduction is permanent
// and is not restored.
func (s *Service) DeleteExpense(ctx context.Context, id string) error {
	expense, err := s.GetExpense(ctx, id)
	if err != nil {
		return err
	}
	if err := s.docs.DeleteDocument(ctx, domain.CollectionExpenses, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", domain.ErrExpenseNotFound, id)
		}
		return err
	}
	s.logActivity(ctx, "expense_delete", "expense", id, fmt.Sprintf("type=%s,stock_restored=false", expense.Type))
	return nil
}
