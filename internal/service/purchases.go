package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Noble200/nose-sub001/internal/domain"
	"github.com/Noble200/nose-sub001/internal/reconcile"
	"github.com/Noble200/nose-sub001/internal/store"
	"github.com/Noble200/nose-sub001/internal/xid"
)

func (s *Service) CreatePurchase(ctx context.Context, req domain.PurchaseCreateRequest) (domain.PurchaseOrder, error) {
	req.Supplier = strings.TrimSpace(req.Supplier)
	req.PurchaseNumber = strings.TrimSpace(req.PurchaseNumber)
	for i := range req.LineItems {
		req.LineItems[i].ProductID = strings.TrimSpace(req.LineItems[i].ProductID)
		req.LineItems[i].Name = strings.TrimSpace(req.LineItems[i].Name)
	}
	if err := s.check(req); err != nil {
		return domain.PurchaseOrder{}, err
	}
	if req.Freight.IsNegative() || req.Taxes.IsNegative() {
		return domain.PurchaseOrder{}, fmt.Errorf("%w: freight and taxes must not be negative", domain.ErrInvalidInput)
	}
	purchaseDate, err := s.optionalDate(req.PurchaseDate)
	if err != nil {
		return domain.PurchaseOrder{}, err
	}

	lineItems := make([]domain.LineItem, 0, len(req.LineItems))
	for _, item := range req.LineItems {
		if !item.Quantity.IsPositive() {
			return domain.PurchaseOrder{}, fmt.Errorf("%w: line item %q quantity %s", domain.ErrInvalidQuantity, item.Name, item.Quantity)
		}
		if item.UnitCost.IsNegative() {
			return domain.PurchaseOrder{}, fmt.Errorf("%w: line item %q unit cost %s", domain.ErrInvalidInput, item.Name, item.UnitCost)
		}
		lineItems = append(lineItems, domain.LineItem{
			ID:        xid.New("li"),
			ProductID: item.ProductID,
			Name:      item.Name,
			Category:  strings.TrimSpace(item.Category),
			Unit:      strings.TrimSpace(item.Unit),
			Quantity:  item.Quantity,
			UnitCost:  item.UnitCost,
		})
	}

	if err := s.requireProducts(ctx, lineItems); err != nil {
		return domain.PurchaseOrder{}, err
	}

	now := s.now()
	purchase := domain.PurchaseOrder{
		ID:             xid.New("pur"),
		PurchaseNumber: req.PurchaseNumber,
		Supplier:       req.Supplier,
		PurchaseDate:   purchaseDate,
		Status:         domain.PurchaseStatusPending,
		LineItems:      lineItems,
		Freight:        req.Freight,
		Taxes:          req.Taxes,
		Deliveries:     []domain.Delivery{},
		Notes:          strings.TrimSpace(req.Notes),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if purchase.PurchaseNumber == "" {
		purchase.PurchaseNumber = fmt.Sprintf("PO-%s-%s", now.Format("20060102"), strings.ToUpper(purchase.ID[len(purchase.ID)-6:]))
	}
	reconcile.Recompute(&purchase)

	if err := s.docs.SetDocument(ctx, domain.CollectionPurchases, purchase.ID, purchase); err != nil {
		return domain.PurchaseOrder{}, err
	}
	s.logActivity(ctx, "purchase_create", "purchase", purchase.ID, fmt.Sprintf("number=%s,items=%d,total=%s", purchase.PurchaseNumber, len(lineItems), purchase.TotalAmount))
	return purchase, nil
}

// requireProducts rejects line items pointing at products that do not exist, since their
// deliveries could never complete.
func (s *Service) requireProducts(ctx context.Context, items []domain.LineItem) error {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		var product domain.Product
		if err := s.docs.GetDocument(ctx, domain.CollectionProducts, item.ProductID, &product); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: line item %q references %s", domain.ErrProductNotFound, item.Name, item.ProductID)
			}
			return err
		}
	}
	return nil
}

func (s *Service) ApprovePurchase(ctx context.Context, purchaseID string) (domain.PurchaseOrder, error) {
	var approved domain.PurchaseOrder
	err := s.docs.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		purchase, err := loadPurchase(ctx, tx, purchaseID)
		if err != nil {
			return err
		}
		if purchase.Status != domain.PurchaseStatusPending {
			return fmt.Errorf("%w: purchase %s is %s", domain.ErrInvalidTransition, purchaseID, purchase.Status)
		}
		now := s.now()
		purchase.Status = domain.PurchaseStatusApproved
		purchase.ApprovedAt = &now
		purchase.UpdatedAt = now
		reconcile.Recompute(&purchase)
		approved = purchase
		return tx.Set(ctx, domain.CollectionPurchases, purchaseID, purchase)
	})
	if err != nil {
		return domain.PurchaseOrder{}, err
	}
	s.invalidateDeliverables(ctx, purchaseID)
	s.logActivity(ctx, "purchase_approve", "purchase", purchaseID, "")
	return approved, nil
}

// CancelPurchase cancels a non-terminal purchase together with its in-transit deliveries.
// Completed deliveries are kept; their stock already entered inventory.
func (s *Service) CancelPurchase(ctx context.Context, purchaseID string, reason string) (domain.PurchaseOrder, error) {
	reason = strings.TrimSpace(reason)
	var cancelled domain.PurchaseOrder
	var released int
	err := s.docs.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		purchase, err := loadPurchase(ctx, tx, purchaseID)
		if err != nil {
			return err
		}
		if purchase.IsTerminal() {
			return fmt.Errorf("%w: purchase %s is %s", domain.ErrInvalidTransition, purchaseID, purchase.Status)
		}

		now := s.now()
		released = 0
		for i := range purchase.Deliveries {
			d := &purchase.Deliveries[i]
			if d.Status != domain.DeliveryStatusInTransit {
				continue
			}
			if err := d.Cancel(now, reason); err != nil {
				return err
			}
			released++
		}
		purchase.Status = domain.PurchaseStatusCancelled
		purchase.CancelledAt = &now
		purchase.CancellationReason = reason
		purchase.UpdatedAt = now
		reconcile.Recompute(&purchase)
		cancelled = purchase
		return tx.Set(ctx, domain.CollectionPurchases, purchaseID, purchase)
	})
	if err != nil {
		return domain.PurchaseOrder{}, err
	}
	s.invalidateDeliverables(ctx, purchaseID)
	s.logActivity(ctx, "purchase_cancel", "purchase", purchaseID, fmt.Sprintf("reason=%s,released_deliveries=%d", reason, released))
	return cancelled, nil
}

func (s *Service) GetPurchase(ctx context.Context, purchaseID string) (domain.PurchaseOrder, error) {
	var purchase domain.PurchaseOrder
	if err := s.docs.GetDocument(ctx, domain.CollectionPurchases, purchaseID, &purchase); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.PurchaseOrder{}, fmt.Errorf("%w: %s", domain.ErrPurchaseNotFound, purchaseID)
		}
		return domain.PurchaseOrder{}, err
	}
	normalizePurchase(&purchase, purchaseID)
	return purchase, nil
}

// ListPurchases returns every purchase, or only those in status when it is set.
func (s *Service) ListPurchases(ctx context.Context, status string) ([]domain.PurchaseOrder, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	raws, err := s.docs.ListDocuments(ctx, domain.CollectionPurchases)
	if err != nil {
		return nil, err
	}
	all, err := decodeAll[domain.PurchaseOrder](raws)
	if err != nil {
		return nil, err
	}
	out := make([]domain.PurchaseOrder, 0, len(all))
	for _, purchase := range all {
		normalizePurchase(&purchase, purchase.ID)
		if status != "" && purchase.Status != status {
			continue
		}
		out = append(out, purchase)
	}
	return out, nil
}

func loadPurchase(ctx context.Context, tx store.Tx, purchaseID string) (domain.PurchaseOrder, error) {
	var purchase domain.PurchaseOrder
	if err := tx.Get(ctx, domain.CollectionPurchases, purchaseID, &purchase); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.PurchaseOrder{}, fmt.Errorf("%w: %s", domain.ErrPurchaseNotFound, purchaseID)
		}
		return domain.PurchaseOrder{}, err
	}
	normalizePurchase(&purchase, purchaseID)
	return purchase, nil
}

// normalizePurchase fills fields older documents may lack and recomputes the aggregates
// from the delivery list so stored totals never drift.
func normalizePurchase(purchase *domain.PurchaseOrder, purchaseID string) {
	purchase.ID = purchaseID
	if purchase.Deliveries == nil {
		purchase.Deliveries = []domain.Delivery{}
	}
	for i := range purchase.Deliveries {
		if purchase.Deliveries[i].PurchaseID == "" {
			purchase.Deliveries[i].PurchaseID = purchaseID
		}
	}
	reconcile.Recompute(purchase)
}
