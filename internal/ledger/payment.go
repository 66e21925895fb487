package ledger

import (
	"context"
	"errors"

	"go-dokan-pos/internal/apperr"
	"go-dokan-pos/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ApplyPayment adds a settlement to a sale and returns what is still owed.
// Paying more than the balance is accepted; the due amount floors at zero.
func (s *Service) ApplyPayment(ctx context.Context, saleID uint, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, apperr.Validation("amount", "must be positive, got %s", amount.StringFixed(2))
	}

	var newDue decimal.Decimal
	err := s.runTx(ctx, func(tx *gorm.DB) error {
		var sale models.Sale
		// Lock the row so two settlements cannot both read the old balance.
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&sale, saleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("sale", saleID)
			}
			return apperr.Storage("load sale", err)
		}

		paid := sale.PaidAmount.Add(amount)
		newDue = models.Settle(sale.FinalAmount, paid)
		err := tx.Model(&models.Sale{}).Where("id = ?", sale.ID).UpdateColumns(map[string]any{
			"paid_amount":    paid,
			"due_amount":     newDue,
			"payment_status": models.PaymentStatus(newDue),
		}).Error
		if err != nil {
			return apperr.Storage("update sale payment", err)
		}
		return nil
	})
	if err != nil {
		logWrite("apply payment")(err)
		return decimal.Zero, err
	}

	s.invalidateStats(ctx)
	log.Info().Uint("sale_id", saleID).Str("paid", amount.StringFixed(2)).
		Str("remaining", newDue.StringFixed(2)).Msg("payment applied")
	return newDue, nil
}
