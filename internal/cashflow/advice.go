package cashflow

import (
	"context"
	"fmt"
)

// Advice asks the advisor for a short reading of the current cash position.
// Nothing is written; an advisor failure is returned as is.
func (s *Service) Advice(ctx context.Context) (string, error) {
	o, err := s.Overview(ctx)
	if err != nil {
		return "", err
	}
	return s.advisor.Advise(ctx, advicePrompt(o))
}

func advicePrompt(o *Overview) string {
	return fmt.Sprintf(`You are a business advisor for a small shop in Bangladesh. Analyze its cashflow.

Current status:
- Total assets: Tk %s
- Cash in hand: Tk %s
- Inventory value: Tk %s
- Total dues: Tk %s

Breakdown:
- Sales revenue collected: Tk %s
- Other income: Tk %s
- Total expenses: Tk %s

In 2-3 simple sentences: how is the cash situation, where is the problem, and what should the owner do?`,
		o.TotalAssets.StringFixed(0), o.CashBalance.StringFixed(0), o.InventoryValue.StringFixed(0),
		o.TotalDues.StringFixed(0), o.SalesCollected.StringFixed(0), o.OtherIncome.StringFixed(0),
		o.Expenses.StringFixed(0))
}
