package ledger

import (
	"context"
	"testing"

	"go-dokan-pos/internal/apperr"
	"go-dokan-pos/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyPayment_SettlesDownToPaid(t *testing.T) {
	s, db := newTestService(t)
	p := seedProduct(t, db, "Rice", "80", "100", 10)
	ctx := context.Background()

	id := recordOK(t, s, SaleRequest{
		CustomerName: "Karim",
		Items:        []CartItem{line(p, 5)},
		Discount:     dec("50"),
		PaidAmount:   dec("300"),
	})

	due, err := s.ApplyPayment(ctx, id, dec("100"))
	require.NoError(t, err)
	assertMoney(t, "50", due)

	sale, err := s.GetSale(ctx, id)
	require.NoError(t, err)
	assertMoney(t, "400", sale.PaidAmount)
	assert.Equal(t, models.StatusDue, sale.PaymentStatus)

	due, err = s.ApplyPayment(ctx, id, dec("50"))
	require.NoError(t, err)
	assertMoney(t, "0", due)

	sale, err = s.GetSale(ctx, id)
	require.NoError(t, err)
	assertMoney(t, "450", sale.PaidAmount)
	assertMoney(t, "0", sale.DueAmount)
	assert.Equal(t, models.StatusPaid, sale.PaymentStatus)
}

func TestApplyPayment_OverpaymentFloorsDueAtZero(t *testing.T) {
	s, db := newTestService(t)
	p := seedProduct(t, db, "Rice", "80", "100", 10)
	ctx := context.Background()
	id := recordOK(t, s, SaleRequest{CustomerName: "Karim", Items: []CartItem{line(p, 1)}, PaidAmount: dec("60")})

	due, err := s.ApplyPayment(ctx, id, dec("70"))
	require.NoError(t, err)
	assertMoney(t, "0", due)

	sale, err := s.GetSale(ctx, id)
	require.NoError(t, err)
	assertMoney(t, "130", sale.PaidAmount)
	assert.Equal(t, models.StatusPaid, sale.PaymentStatus)
}

func TestApplyPayment_Errors(t *testing.T) {
	s, db := newTestService(t)
	p := seedProduct(t, db, "Rice", "80", "100", 10)
	ctx := context.Background()
	id := recordOK(t, s, SaleRequest{CustomerName: "Karim", Items: []CartItem{line(p, 1)}})

	_, err := s.ApplyPayment(ctx, 4242, dec("10"))
	assert.Equal(t, "not_found", apperr.Kind(err))

	_, err = s.ApplyPayment(ctx, id, dec("0"))
	assert.Equal(t, "validation", apperr.Kind(err))

	_, err = s.ApplyPayment(ctx, id, dec("-5"))
	assert.Equal(t, "validation", apperr.Kind(err))

	sale, err := s.GetSale(ctx, id)
	require.NoError(t, err)
	assertMoney(t, "0", sale.PaidAmount)
	assertMoney(t, "100", sale.DueAmount)
}
