package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/Noble200/nose-sub001/internal/domain"
)

// Totals are the purchase-level quantity aggregates stored on the order.
type Totals struct {
	Delivered decimal.Decimal
	Pending   decimal.Decimal
	Received  decimal.Decimal
}

// Aggregate sums the per-key progress. Delivered counts in-transit and completed deliveries;
// Received counts completed deliveries only.
func Aggregate(p domain.PurchaseOrder) Totals {
	totals := Totals{Delivered: decimal.Zero, Pending: decimal.Zero, Received: decimal.Zero}
	keys := make(map[string]struct{}, len(p.LineItems))
	for _, lp := range Progress(p) {
		keys[lp.Key] = struct{}{}
		totals.Delivered = totals.Delivered.Add(lp.Delivered)
		totals.Pending = totals.Pending.Add(lp.Pending)
	}
	for _, d := range p.Deliveries {
		if d.Status != domain.DeliveryStatusCompleted {
			continue
		}
		for _, dp := range d.Products {
			if _, ok := keys[dp.Key()]; ok {
				totals.Received = totals.Received.Add(dp.Quantity)
			}
		}
	}
	return totals
}

// TotalAmount is Σ quantity·unitCost + freight + taxes.
func TotalAmount(p domain.PurchaseOrder) decimal.Decimal {
	total := decimal.Zero
	for _, li := range p.LineItems {
		total = total.Add(li.Subtotal())
	}
	return total.Add(p.Freight).Add(p.Taxes)
}

// DeriveStatus computes the purchase status from its lifecycle status and delivery history.
// Pending (not yet approved) and cancelled are decided by explicit actions and kept as is.
func DeriveStatus(p domain.PurchaseOrder) string {
	switch p.Status {
	case domain.PurchaseStatusPending, domain.PurchaseStatusCancelled:
		return p.Status
	}

	totals := Aggregate(p)
	inTransit, completed := 0, 0
	for _, d := range p.Deliveries {
		switch d.Status {
		case domain.DeliveryStatusInTransit:
			inTransit++
		case domain.DeliveryStatusCompleted:
			completed++
		}
	}

	switch {
	case totals.Pending.IsZero() && inTransit == 0 && completed > 0:
		return domain.PurchaseStatusCompleted
	case totals.Delivered.IsPositive():
		return domain.PurchaseStatusPartialDelivered
	default:
		return domain.PurchaseStatusApproved
	}
}

// Recompute refreshes every derived field on p.
func Recompute(p *domain.PurchaseOrder) {
	totals := Aggregate(*p)
	p.TotalDelivered = totals.Delivered
	p.TotalPending = totals.Pending
	p.TotalReceived = totals.Received
	p.TotalAmount = TotalAmount(*p)
	p.Status = DeriveStatus(*p)
}

// AcceptsDeliveries reports whether new deliveries can be recorded against p.
func AcceptsDeliveries(p domain.PurchaseOrder) bool {
	return p.Status == domain.PurchaseStatusApproved || p.Status == domain.PurchaseStatusPartialDelivered
}
