package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSettle(t *testing.T) {
	cases := []struct {
		name       string
		final      int64
		paid       int64
		wantDue    int64
		wantStatus string
	}{
		{"partial", 450, 300, 150, StatusDue},
		{"exact", 450, 450, 0, StatusPaid},
		{"overpaid", 450, 500, 0, StatusPaid},
		{"nothing paid", 120, 0, 120, StatusDue},
		{"free sale", 0, 0, 0, StatusPaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			due := Settle(decimal.NewFromInt(tc.final), decimal.NewFromInt(tc.paid))
			assert.True(t, due.Equal(decimal.NewFromInt(tc.wantDue)), "due=%s", due)
			assert.Equal(t, tc.wantStatus, PaymentStatus(due))
		})
	}
}

func TestNameKey(t *testing.T) {
	assert.Equal(t, "karim", NameKey("  Karim "))
	assert.Equal(t, NameKey("RICE 5kg"), NameKey("rice 5KG"))
}
