// Package reconcile derives what remains deliverable on a purchase order from its delivery
// history, validates delivery requests against it, and recomputes the purchase aggregates.
// Every function here is pure: the delivery list is the single source of truth.
package reconcile

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Noble200/nose-sub001/internal/domain"
)

// LineProgress is the reconciliation state of one line-item key.
type LineProgress struct {
	Key       string
	LineItem  domain.LineItem
	Original  decimal.Decimal
	Delivered decimal.Decimal
	Pending   decimal.Decimal
}

// Policy tunes request validation. The zero value caps over-requested quantities at the
// pending quantity.
type Policy struct {
	// RejectOverRequest turns a request above the pending quantity into ErrInvalidQuantity.
	RejectOverRequest bool
}

// Draft is a validated delivery ready to be appended to a purchase.
type Draft struct {
	WarehouseID       string
	DeliveryDate      time.Time
	Products          []domain.DeliveryProduct
	Freight           decimal.Decimal
	TotalQuantity     decimal.Decimal
	TotalProductValue decimal.Decimal
	TotalWithFreight  decimal.Decimal
	Notes             string
}

// Progress returns one entry per distinct line-item key in line-item order. Line items that
// share a key (legacy name-keyed documents) are merged into a single entry.
func Progress(p domain.PurchaseOrder) []LineProgress {
	index := make(map[string]int, len(p.LineItems))
	out := make([]LineProgress, 0, len(p.LineItems))
	for _, li := range p.LineItems {
		key := li.Key()
		if i, ok := index[key]; ok {
			out[i].Original = out[i].Original.Add(li.Quantity)
			continue
		}
		index[key] = len(out)
		out = append(out, LineProgress{Key: key, LineItem: li, Original: li.Quantity, Delivered: decimal.Zero})
	}

	for _, d := range p.Deliveries {
		if !d.Reserves() {
			continue
		}
		for _, dp := range d.Products {
			if i, ok := index[dp.Key()]; ok {
				out[i].Delivered = out[i].Delivered.Add(dp.Quantity)
			}
		}
	}

	for i := range out {
		out[i].Pending = decimal.Max(decimal.Zero, out[i].Original.Sub(out[i].Delivered))
	}
	return out
}

// PendingQuantities indexes Progress by line-item key.
func PendingQuantities(p domain.PurchaseOrder) map[string]LineProgress {
	progress := Progress(p)
	out := make(map[string]LineProgress, len(progress))
	for _, lp := range progress {
		out[lp.Key] = lp
	}
	return out
}

// Deliverable lists the line items that still have a pending quantity.
func Deliverable(p domain.PurchaseOrder) []domain.DeliverableLineItem {
	items := make([]domain.DeliverableLineItem, 0, len(p.LineItems))
	for _, lp := range Progress(p) {
		if !lp.Pending.IsPositive() {
			continue
		}
		items = append(items, domain.DeliverableLineItem{
			Key:          lp.Key,
			Name:         lp.LineItem.Name,
			Unit:         lp.LineItem.Unit,
			OriginalQty:  lp.Original,
			DeliveredQty: lp.Delivered,
			PendingQty:   lp.Pending,
		})
	}
	return items
}

// CheckRequest runs the checks that need no purchase state.
func CheckRequest(req domain.DeliveryCreateRequest) error {
	if strings.TrimSpace(req.WarehouseID) == "" {
		return domain.ErrMissingWarehouse
	}
	if strings.TrimSpace(req.DeliveryDate) == "" {
		return domain.ErrMissingDate
	}
	for _, rp := range req.Products {
		if rp.Quantity.IsPositive() {
			return nil
		}
	}
	return domain.ErrEmptySelection
}

// ValidateDeliveryRequest turns a request into a Draft against the purchase's current pending
// quantities. Requested quantities above pending are capped unless policy.RejectOverRequest is set.
func ValidateDeliveryRequest(p domain.PurchaseOrder, req domain.DeliveryCreateRequest, policy Policy) (Draft, error) {
	if err := CheckRequest(req); err != nil {
		return Draft{}, err
	}
	deliveryDate, err := ParseDate(req.DeliveryDate)
	if err != nil {
		return Draft{}, err
	}

	pending := PendingQuantities(p)
	remaining := make(map[string]decimal.Decimal, len(pending))
	for key, lp := range pending {
		remaining[key] = lp.Pending
	}

	products := make([]domain.DeliveryProduct, 0, len(req.Products))
	totalQty := decimal.Zero
	totalValue := decimal.Zero
	for _, rp := range req.Products {
		if !rp.Quantity.IsPositive() {
			continue
		}
		key := strings.TrimSpace(rp.LineItemID)
		lp, known := pending[key]
		available := remaining[key]

		qty := rp.Quantity
		if qty.GreaterThan(available) {
			if policy.RejectOverRequest {
				return Draft{}, fmt.Errorf("%w: %q requested %s, pending %s", domain.ErrInvalidQuantity, key, qty, available)
			}
			qty = available
		}
		if !known || !qty.IsPositive() {
			continue
		}
		remaining[key] = available.Sub(qty)

		li := lp.LineItem
		products = append(products, domain.DeliveryProduct{
			LineItemID: li.ID,
			ProductID:  li.ProductID,
			Name:       li.Name,
			Category:   li.Category,
			Unit:       li.Unit,
			Quantity:   qty,
			UnitCost:   li.UnitCost,
		})
		totalQty = totalQty.Add(qty)
		totalValue = totalValue.Add(qty.Mul(li.UnitCost))
	}
	if len(products) == 0 {
		return Draft{}, domain.ErrEmptySelection
	}

	freight := ParseFreight(req.Freight)
	return Draft{
		WarehouseID:       strings.TrimSpace(req.WarehouseID),
		DeliveryDate:      deliveryDate,
		Products:          products,
		Freight:           freight,
		TotalQuantity:     totalQty,
		TotalProductValue: totalValue,
		TotalWithFreight:  totalValue.Add(freight),
		Notes:             strings.TrimSpace(req.Notes),
	}, nil
}

// ParseFreight reads a free-text freight amount; blank, unparseable or negative input is zero.
func ParseFreight(raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	freight, err := decimal.NewFromString(raw)
	if err != nil || freight.IsNegative() {
		return decimal.Zero
	}
	return freight
}

// ParseDate accepts a calendar date or an RFC 3339 timestamp.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", domain.ErrInvalidDate, raw)
}
