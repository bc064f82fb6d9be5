package fees_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"ms-auction/internal/fees"
	"ms-auction/internal/models"
)

func defaultFee() *models.TransactionFee {
	return &models.TransactionFee{
		FeeID:            "fee-default",
		BuyerPercentage:  decimal.NewFromInt(10),
		SellerPercentage: decimal.NewFromInt(15),
		MinFee:           decimal.NewFromInt(5),
		MaxFee:           decimal.Zero,
	}
}

func TestResolveUsesDefaults(t *testing.T) {
	schedule := fees.Resolve(models.SessionRules{}, defaultFee())

	assert.True(t, schedule.BuyerPct.Equal(decimal.NewFromInt(10)))
	assert.True(t, schedule.SellerPct.Equal(decimal.NewFromInt(15)))
	assert.True(t, schedule.MinFee.Equal(decimal.NewFromInt(5)))
}

func TestResolveSessionOverrides(t *testing.T) {
	rules := models.SessionRules{
		BuyerFeePct: decimal.NewNullDecimal(decimal.NewFromInt(12)),
		MaxFee:      decimal.NewNullDecimal(decimal.NewFromInt(50)),
	}

	schedule := fees.Resolve(rules, defaultFee())

	assert.True(t, schedule.BuyerPct.Equal(decimal.NewFromInt(12)), "override should win")
	assert.True(t, schedule.SellerPct.Equal(decimal.NewFromInt(15)), "default should remain")
	assert.True(t, schedule.MaxFee.Equal(decimal.NewFromInt(50)))
}

func TestResolveWithoutDefaults(t *testing.T) {
	rules := models.SessionRules{
		BuyerFeePct:  decimal.NewNullDecimal(decimal.NewFromInt(8)),
		SellerFeePct: decimal.NewNullDecimal(decimal.NewFromInt(9)),
	}

	schedule := fees.Resolve(rules, nil)

	assert.True(t, schedule.BuyerPct.Equal(decimal.NewFromInt(8)))
	assert.True(t, schedule.SellerPct.Equal(decimal.NewFromInt(9)))
	assert.True(t, schedule.MinFee.IsZero())
}

func TestBuyerFeePercentage(t *testing.T) {
	schedule := fees.Resolve(models.SessionRules{}, defaultFee())

	// 10% of 600 is 60, well above the 5 minimum.
	fee := schedule.BuyerFee(decimal.NewFromInt(600))
	assert.True(t, fee.Equal(decimal.NewFromInt(60)), "got %s", fee)
}

func TestSellerFeePercentage(t *testing.T) {
	schedule := fees.Resolve(models.SessionRules{}, defaultFee())

	// 15% of 600 is 90.
	fee := schedule.SellerFee(decimal.NewFromInt(600))
	assert.True(t, fee.Equal(decimal.NewFromInt(90)), "got %s", fee)
}

func TestFeeClampedToMinimum(t *testing.T) {
	schedule := fees.Resolve(models.SessionRules{}, defaultFee())

	// 10% of 20 is 2, below the 5 minimum.
	fee := schedule.BuyerFee(decimal.NewFromInt(20))
	assert.True(t, fee.Equal(decimal.NewFromInt(5)), "got %s", fee)
}

func TestFeeClampedToMaximum(t *testing.T) {
	rules := models.SessionRules{
		MaxFee: decimal.NewNullDecimal(decimal.NewFromInt(100)),
	}
	schedule := fees.Resolve(rules, defaultFee())

	// 10% of 5000 is 500, capped at 100.
	fee := schedule.BuyerFee(decimal.NewFromInt(5000))
	assert.True(t, fee.Equal(decimal.NewFromInt(100)), "got %s", fee)
}

func TestZeroMaxFeeMeansNoCap(t *testing.T) {
	schedule := fees.Resolve(models.SessionRules{}, defaultFee())

	fee := schedule.BuyerFee(decimal.NewFromInt(1000000))
	assert.True(t, fee.Equal(decimal.NewFromInt(100000)), "got %s", fee)
}
