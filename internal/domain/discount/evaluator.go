// internal/domain/discount/evaluator.go
package discount

import "time"

// Rejection reasons returned by Evaluate
const (
	ReasonNotFound      = "discount code not found"
	ReasonInactive      = "discount code is not active"
	ReasonNotStarted    = "discount code is not active yet"
	ReasonExpired       = "discount code has expired"
	ReasonMinOrder      = "order does not meet the minimum amount"
	ReasonExhausted     = "discount code usage limit reached"
	ReasonUserExhausted = "you have already used this discount code"
)

// Evaluation is the outcome of checking a discount against an order total.
// An unapplied evaluation never fails the order; checkout proceeds at full
// price and Reason tells the caller why.
type Evaluation struct {
	Discount *Discount `json:"discount,omitempty"`
	Applied  bool      `json:"applied"`
	Amount   int64     `json:"amount"` // Discount in cents
	Reason   string    `json:"reason,omitempty"`
}

// Evaluate checks whether a discount is usable at the given time for a user
// who has already redeemed it userRedemptions times, and computes the amount
// it would take off subtotal. Pure function, no database access.
func Evaluate(d *Discount, subtotal int64, userRedemptions int64, now time.Time) Evaluation {
	if d == nil {
		return Evaluation{Reason: ReasonNotFound}
	}
	if !d.IsActive {
		return Evaluation{Discount: d, Reason: ReasonInactive}
	}
	if d.StartsAt != nil && now.Before(*d.StartsAt) {
		return Evaluation{Discount: d, Reason: ReasonNotStarted}
	}
	if d.EndsAt != nil && now.After(*d.EndsAt) {
		return Evaluation{Discount: d, Reason: ReasonExpired}
	}
	if d.MinOrderAmount > 0 && subtotal < d.MinOrderAmount {
		return Evaluation{Discount: d, Reason: ReasonMinOrder}
	}
	if d.UsageLimit > 0 && d.TimesUsed >= d.UsageLimit {
		return Evaluation{Discount: d, Reason: ReasonExhausted}
	}
	if d.UsageLimitPerUser > 0 && userRedemptions >= int64(d.UsageLimitPerUser) {
		return Evaluation{Discount: d, Reason: ReasonUserExhausted}
	}

	return Evaluation{
		Discount: d,
		Applied:  true,
		Amount:   Apply(d, subtotal),
	}
}

// Apply computes the discount amount for a subtotal. The result never
// exceeds the subtotal, so order totals cannot go negative.
func Apply(d *Discount, subtotal int64) int64 {
	var amount int64

	switch d.Type {
	case TypePercentage:
		amount = subtotal * d.Value / 100
		if d.MaxDiscountAmount > 0 && amount > d.MaxDiscountAmount {
			amount = d.MaxDiscountAmount
		}
	case TypeFixed:
		amount = d.Value
	}

	if amount > subtotal {
		amount = subtotal
	}
	if amount < 0 {
		amount = 0
	}
	return amount
}
