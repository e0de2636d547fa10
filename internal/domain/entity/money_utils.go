package entity

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	errs "github.com/amirhossein-jamali/trading-ledger/internal/domain/error"
)

// MaxDecimalPlaces defines the maximum number of decimal places allowed for money amounts
const MaxDecimalPlaces = 2

// MaxQuantityPlaces defines the maximum number of decimal places allowed for share quantities
const MaxQuantityPlaces = 8

// ValidateAndConvertAmount validates a string amount and converts it to integer cents.
// Uses a string-based approach so no floating point is involved:
// - If no decimal point: appends "00"
// - If one digit after the decimal: appends "0"
// - If two digits after the decimal: just removes the point
func ValidateAndConvertAmount(amount string) (int64, error) {
	amount = strings.TrimSpace(amount)
	if len(amount) == 0 {
		return 0, fmt.Errorf("%w: empty value", errs.ErrInvalidAmount)
	}

	if strings.HasPrefix(amount, "-") {
		return 0, errs.ErrNegativeAmount
	}

	parts := strings.Split(amount, ".")
	if len(parts) > 2 {
		return 0, fmt.Errorf("%w: invalid number format", errs.ErrInvalidAmount)
	}

	var integerValue string

	if len(parts) == 1 {
		integerValue = parts[0] + "00"
	} else {
		switch len(parts[1]) {
		case 0:
			integerValue = parts[0] + "00"
		case 1:
			integerValue = parts[0] + parts[1] + "0"
		case 2:
			integerValue = parts[0] + parts[1]
		default:
			return 0, fmt.Errorf("%w: maximum %d decimal places allowed", errs.ErrInvalidAmount, MaxDecimalPlaces)
		}
	}

	value, err := strconv.ParseInt(integerValue, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", errs.ErrInvalidAmount, err.Error())
	}

	return value, nil
}

// AmountInCentsToString converts an integer cent amount to a decimal string.
// For example 1015 becomes "10.15" and 80 becomes "0.80".
func AmountInCentsToString(amountInCents int64) string {
	isNegative := amountInCents < 0
	if isNegative {
		amountInCents = -amountInCents
	}

	amountStr := strconv.FormatInt(amountInCents, 10)

	for len(amountStr) < 3 {
		amountStr = "0" + amountStr
	}

	decimalPos := len(amountStr) - 2
	wholePart := amountStr[:decimalPos]
	decimalPart := amountStr[decimalPos:]

	if isNegative {
		return "-" + wholePart + "." + decimalPart
	}
	return wholePart + "." + decimalPart
}

// ParseQuantity validates a string share quantity and converts it to a decimal.
// Quantities must be strictly positive with at most MaxQuantityPlaces decimal places.
func ParseQuantity(quantity string) (decimal.Decimal, error) {
	quantity = strings.TrimSpace(quantity)
	if len(quantity) == 0 {
		return decimal.Zero, fmt.Errorf("%w: empty value", errs.ErrInvalidQuantity)
	}

	q, err := decimal.NewFromString(quantity)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s", errs.ErrInvalidQuantity, err.Error())
	}
	if !q.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: must be greater than zero", errs.ErrInvalidQuantity)
	}
	if q.Exponent() < -MaxQuantityPlaces {
		return decimal.Zero, fmt.Errorf("%w: maximum %d decimal places allowed", errs.ErrInvalidQuantity, MaxQuantityPlaces)
	}

	return q, nil
}

// ParsePrice validates a string per-share price and converts it to integer cents.
// Prices must be strictly positive.
func ParsePrice(price string) (int64, error) {
	cents, err := ValidateAndConvertAmount(price)
	if err != nil {
		return 0, err
	}
	if cents <= 0 {
		return 0, fmt.Errorf("%w: price must be greater than zero", errs.ErrInvalidAmount)
	}
	return cents, nil
}

// CostInCents computes quantity * pricePerShare in integer cents.
// The multiplication is exact decimal arithmetic; the result is rounded
// half away from zero to whole cents. Returns an error on int64 overflow.
func CostInCents(quantity decimal.Decimal, priceCents int64) (int64, error) {
	cost := quantity.Mul(decimal.NewFromInt(priceCents)).Round(0)
	if !cost.BigInt().IsInt64() {
		return 0, errs.ErrAmountOverflow
	}
	return cost.IntPart(), nil
}
