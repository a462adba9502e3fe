package reconcile

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Noble200/nose-sub001/internal/domain"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func approvedPurchase() domain.PurchaseOrder {
	return domain.PurchaseOrder{
		ID:     "pur-1",
		Status: domain.PurchaseStatusApproved,
		LineItems: []domain.LineItem{
			{ID: "li-a", ProductID: "prod-a", Name: "Soy seed", Unit: "kg", Quantity: d("100"), UnitCost: d("2")},
			{ID: "li-b", ProductID: "prod-b", Name: "Urea", Unit: "kg", Quantity: d("50"), UnitCost: d("4")},
		},
		Freight: d("10"),
		Taxes:   d("5"),
	}
}

func delivery(id, status string, qty map[string]string) domain.Delivery {
	del := domain.Delivery{ID: id, Status: status}
	for key, q := range qty {
		del.Products = append(del.Products, domain.DeliveryProduct{LineItemID: key, Quantity: d(q)})
	}
	return del
}

func request(lines ...domain.DeliveryProductRequest) domain.DeliveryCreateRequest {
	return domain.DeliveryCreateRequest{WarehouseID: "wh-1", DeliveryDate: "2026-03-01", Products: lines}
}

func line(key, qty string) domain.DeliveryProductRequest {
	return domain.DeliveryProductRequest{LineItemID: key, Quantity: d(qty)}
}

func TestPendingCountsInTransitAndCompleted(t *testing.T) {
	p := approvedPurchase()
	p.Deliveries = []domain.Delivery{
		delivery("del-1", domain.DeliveryStatusCompleted, map[string]string{"li-a": "30"}),
		delivery("del-2", domain.DeliveryStatusInTransit, map[string]string{"li-a": "20", "li-b": "50"}),
		delivery("del-3", domain.DeliveryStatusCancelled, map[string]string{"li-a": "40"}),
	}

	pending := PendingQuantities(p)
	assert.True(t, pending["li-a"].Delivered.Equal(d("50")))
	assert.True(t, pending["li-a"].Pending.Equal(d("50")))
	assert.True(t, pending["li-b"].Pending.IsZero())

	items := Deliverable(p)
	require.Len(t, items, 1)
	assert.Equal(t, "li-a", items[0].Key)
	assert.True(t, items[0].OriginalQty.Equal(d("100")))
}

func TestPendingNeverNegative(t *testing.T) {
	p := approvedPurchase()
	p.Deliveries = []domain.Delivery{
		delivery("del-1", domain.DeliveryStatusCompleted, map[string]string{"li-b": "80"}),
	}
	assert.True(t, PendingQuantities(p)["li-b"].Pending.IsZero())
}

func TestCancellationReleasesQuantity(t *testing.T) {
	p := approvedPurchase()
	p.Deliveries = []domain.Delivery{
		delivery("del-1", domain.DeliveryStatusInTransit, map[string]string{"li-a": "60"}),
	}
	require.True(t, PendingQuantities(p)["li-a"].Pending.Equal(d("40")))

	require.NoError(t, p.Deliveries[0].Cancel(time.Now(), "truck broke down"))
	assert.True(t, PendingQuantities(p)["li-a"].Pending.Equal(d("100")))
}

func TestLegacyNameKeys(t *testing.T) {
	p := domain.PurchaseOrder{
		Status: domain.PurchaseStatusApproved,
		LineItems: []domain.LineItem{
			{Name: "Diesel", Quantity: d("500")},
		},
		Deliveries: []domain.Delivery{
			{Status: domain.DeliveryStatusCompleted, Products: []domain.DeliveryProduct{{Name: "Diesel", Quantity: d("200")}}},
		},
	}
	assert.True(t, PendingQuantities(p)["Diesel"].Pending.Equal(d("300")))
}

func TestCheckRequestOrder(t *testing.T) {
	tests := []struct {
		name string
		req  domain.DeliveryCreateRequest
		want error
	}{
		{"missing warehouse", domain.DeliveryCreateRequest{DeliveryDate: "2026-03-01"}, domain.ErrMissingWarehouse},
		{"missing date", domain.DeliveryCreateRequest{WarehouseID: "wh-1"}, domain.ErrMissingDate},
		{"no positive quantity", request(line("li-a", "0")), domain.ErrEmptySelection},
		{"ok", request(line("li-a", "1")), nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckRequest(tc.req)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestValidateRejectsBadDate(t *testing.T) {
	req := request(line("li-a", "1"))
	req.DeliveryDate = "01/03/2026"
	_, err := ValidateDeliveryRequest(approvedPurchase(), req, Policy{})
	assert.ErrorIs(t, err, domain.ErrInvalidDate)
}

func TestValidateClampsOverRequest(t *testing.T) {
	p := approvedPurchase()
	p.Deliveries = []domain.Delivery{
		delivery("del-1", domain.DeliveryStatusCompleted, map[string]string{"li-a": "90"}),
	}

	draft, err := ValidateDeliveryRequest(p, request(line("li-a", "25")), Policy{})
	require.NoError(t, err)
	require.Len(t, draft.Products, 1)
	assert.True(t, draft.Products[0].Quantity.Equal(d("10")))
	assert.Equal(t, "prod-a", draft.Products[0].ProductID)
	assert.True(t, draft.TotalProductValue.Equal(d("20")))

	_, err = ValidateDeliveryRequest(p, request(line("li-a", "25")), Policy{RejectOverRequest: true})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestValidateClampsRepeatedKeyWithinRequest(t *testing.T) {
	draft, err := ValidateDeliveryRequest(approvedPurchase(), request(line("li-b", "30"), line("li-b", "30")), Policy{})
	require.NoError(t, err)
	assert.True(t, draft.TotalQuantity.Equal(d("50")))
}

func TestValidateDropsExhaustedAndUnknownLines(t *testing.T) {
	p := approvedPurchase()
	p.Deliveries = []domain.Delivery{
		delivery("del-1", domain.DeliveryStatusInTransit, map[string]string{"li-b": "50"}),
	}

	_, err := ValidateDeliveryRequest(p, request(line("li-b", "5"), line("li-zzz", "3")), Policy{})
	assert.ErrorIs(t, err, domain.ErrEmptySelection)

	draft, err := ValidateDeliveryRequest(p, request(line("li-b", "5"), line("li-a", "3")), Policy{})
	require.NoError(t, err)
	require.Len(t, draft.Products, 1)
	assert.Equal(t, "li-a", draft.Products[0].LineItemID)
}

func TestValidateTotals(t *testing.T) {
	req := request(line("li-a", "10"), line("li-b", "5"))
	req.Freight = " 12.50 "
	req.Notes = "  first truck "

	draft, err := ValidateDeliveryRequest(approvedPurchase(), req, Policy{})
	require.NoError(t, err)
	assert.True(t, draft.TotalQuantity.Equal(d("15")))
	assert.True(t, draft.TotalProductValue.Equal(d("40")))
	assert.True(t, draft.Freight.Equal(d("12.5")))
	assert.True(t, draft.TotalWithFreight.Equal(d("52.5")))
	assert.Equal(t, "first truck", draft.Notes)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), draft.DeliveryDate)
}

func TestParseFreight(t *testing.T) {
	assert.True(t, ParseFreight("").IsZero())
	assert.True(t, ParseFreight("abc").IsZero())
	assert.True(t, ParseFreight("-3").IsZero())
	assert.True(t, ParseFreight("7.25").Equal(d("7.25")))
}

func TestParseDateAcceptsTimestamp(t *testing.T) {
	got, err := ParseDate("2026-03-01T08:30:00-03:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 11, 30, 0, 0, time.UTC), got)

	_, err = ParseDate("tomorrow")
	assert.True(t, errors.Is(err, domain.ErrInvalidDate))
}
