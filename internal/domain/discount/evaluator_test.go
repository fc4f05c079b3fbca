package discount

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func activeDiscount(dType string, value int64) *Discount {
	return &Discount{
		ID:       1,
		Code:     "SAVE10",
		Type:     dType,
		Value:    value,
		IsActive: true,
	}
}

func TestEvaluatePercentage(t *testing.T) {
	d := activeDiscount(TypePercentage, 10)

	eval := Evaluate(d, 10000, 0, time.Now())

	assert.True(t, eval.Applied)
	assert.Equal(t, int64(1000), eval.Amount)
	assert.Empty(t, eval.Reason)
}

func TestEvaluatePercentageCappedByMax(t *testing.T) {
	d := activeDiscount(TypePercentage, 50)
	d.MaxDiscountAmount = 2000

	eval := Evaluate(d, 10000, 0, time.Now())

	assert.True(t, eval.Applied)
	assert.Equal(t, int64(2000), eval.Amount)
}

func TestEvaluateFixed(t *testing.T) {
	d := activeDiscount(TypeFixed, 1500)

	eval := Evaluate(d, 10000, 0, time.Now())

	assert.True(t, eval.Applied)
	assert.Equal(t, int64(1500), eval.Amount)
}

func TestEvaluateFixedNeverExceedsSubtotal(t *testing.T) {
	d := activeDiscount(TypeFixed, 5000)

	eval := Evaluate(d, 3000, 0, time.Now())

	assert.True(t, eval.Applied)
	assert.Equal(t, int64(3000), eval.Amount, "discount must not push the total below zero")
}

func TestEvaluateNilDiscount(t *testing.T) {
	eval := Evaluate(nil, 10000, 0, time.Now())

	assert.False(t, eval.Applied)
	assert.Equal(t, ReasonNotFound, eval.Reason)
	assert.Zero(t, eval.Amount)
}

func TestEvaluateInactive(t *testing.T) {
	d := activeDiscount(TypePercentage, 10)
	d.IsActive = false

	eval := Evaluate(d, 10000, 0, time.Now())

	assert.False(t, eval.Applied)
	assert.Equal(t, ReasonInactive, eval.Reason)
}

func TestEvaluateTimeWindow(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	t.Run("not started", func(t *testing.T) {
		d := activeDiscount(TypePercentage, 10)
		d.StartsAt = &future

		eval := Evaluate(d, 10000, 0, now)
		assert.False(t, eval.Applied)
		assert.Equal(t, ReasonNotStarted, eval.Reason)
	})

	t.Run("expired", func(t *testing.T) {
		d := activeDiscount(TypePercentage, 10)
		d.EndsAt = &past

		eval := Evaluate(d, 10000, 0, now)
		assert.False(t, eval.Applied)
		assert.Equal(t, ReasonExpired, eval.Reason)
	})

	t.Run("inside window", func(t *testing.T) {
		d := activeDiscount(TypePercentage, 10)
		d.StartsAt = &past
		d.EndsAt = &future

		eval := Evaluate(d, 10000, 0, now)
		assert.True(t, eval.Applied)
	})

	t.Run("nil bounds mean always valid", func(t *testing.T) {
		d := activeDiscount(TypePercentage, 10)

		eval := Evaluate(d, 10000, 0, now)
		assert.True(t, eval.Applied)
	})
}

func TestEvaluateMinOrderAmount(t *testing.T) {
	d := activeDiscount(TypePercentage, 10)
	d.MinOrderAmount = 5000

	eval := Evaluate(d, 4999, 0, time.Now())
	assert.False(t, eval.Applied)
	assert.Equal(t, ReasonMinOrder, eval.Reason)

	eval = Evaluate(d, 5000, 0, time.Now())
	assert.True(t, eval.Applied)
}

func TestEvaluateGlobalUsageLimit(t *testing.T) {
	d := activeDiscount(TypePercentage, 10)
	d.UsageLimit = 100
	d.TimesUsed = 100

	eval := Evaluate(d, 10000, 0, time.Now())

	assert.False(t, eval.Applied)
	assert.Equal(t, ReasonExhausted, eval.Reason)
}

func TestEvaluatePerUserLimit(t *testing.T) {
	d := activeDiscount(TypePercentage, 10)
	d.UsageLimitPerUser = 1

	eval := Evaluate(d, 10000, 0, time.Now())
	assert.True(t, eval.Applied)

	eval = Evaluate(d, 10000, 1, time.Now())
	assert.False(t, eval.Applied)
	assert.Equal(t, ReasonUserExhausted, eval.Reason)
}

func TestEvaluateZeroLimitsMeanUnlimited(t *testing.T) {
	d := activeDiscount(TypePercentage, 10)
	d.TimesUsed = 1000000

	eval := Evaluate(d, 10000, 50, time.Now())

	assert.True(t, eval.Applied)
}

func TestApplyRounding(t *testing.T) {
	d := activeDiscount(TypePercentage, 33)

	// Integer cent math truncates toward zero
	assert.Equal(t, int64(33), Apply(d, 101))
	assert.Equal(t, int64(0), Apply(d, 2))
}
