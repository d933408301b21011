package hotel

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dumeirei/hotel-inventory/internal/common/utils"
)

// 免费取消需提前的天数
const freeCancellationDays = 2

var (
	rateNone = decimal.Zero
	rateHalf = decimal.RequireFromString("0.5")
	rateFull = decimal.NewFromInt(1)
)

// CancellationQuote 取消费用计算结果，Charge + Refund == Total
type CancellationQuote struct {
	DaysBeforeCheckIn int             `json:"days_before_check_in"`
	ChargeRate        decimal.Decimal `json:"charge_rate"`
	Total             decimal.Decimal `json:"total"`
	Charge            decimal.Decimal `json:"charge"`
	Refund            decimal.Decimal `json:"refund"`
}

// EvaluateCancellation 按距入住日的整天数计算取消费用
//
//	>= 2 天   免费
//	0 ~ 1 天  收取 50%，保留两位小数
//	< 0 天    未到店，全额收取
func EvaluateCancellation(checkIn time.Time, total decimal.Decimal, now time.Time) CancellationQuote {
	days := utils.DaysBetween(now, checkIn)

	var rate decimal.Decimal
	switch {
	case days >= freeCancellationDays:
		rate = rateNone
	case days >= 0:
		rate = rateHalf
	default:
		rate = rateFull
	}

	charge := total.Mul(rate).Round(2)
	if charge.GreaterThan(total) {
		charge = total
	}
	refund := total.Sub(charge)
	if refund.IsNegative() {
		refund = decimal.Zero
		charge = total
	}

	return CancellationQuote{
		DaysBeforeCheckIn: days,
		ChargeRate:        rate,
		Total:             total,
		Charge:            charge,
		Refund:            refund,
	}
}
