// Package money provides currency-safe amounts for report display. Values are
// held in integer minor units through go-money; conversions go through
// shopspring/decimal so float inputs never lose cents to rounding drift.
package money

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// HNL is the ISO-4217 code of the Honduran Lempira.
const HNL = "HNL"

// DefaultCurrency is the currency sales reports are expressed in.
const DefaultCurrency = HNL

// ISVRate is the Honduran general sales tax rate, in percent.
const ISVRate = 15.0

// Money represents a monetary value with currency.
type Money struct {
	m *money.Money
}

// New creates a new Money value from cents (minor units) and currency code.
func New(amountCents int64, currencyCode string) *Money {
	return &Money{
		m: money.New(amountCents, currencyCode),
	}
}

// NewFromFloat creates Money from a floating-point value.
func NewFromFloat(amount float64, currencyCode string) *Money {
	return NewFromDecimal(decimal.NewFromFloat(amount), currencyCode)
}

// NewFromDecimal creates Money from a decimal.Decimal value.
func NewFromDecimal(amount decimal.Decimal, currencyCode string) *Money {
	currency := money.GetCurrency(currencyCode)
	if currency == nil {
		currencyCode = DefaultCurrency
		currency = money.GetCurrency(currencyCode)
	}

	multiplier := decimal.New(1, int32(currency.Fraction))
	cents := amount.Mul(multiplier).Round(0).IntPart()

	return New(cents, currencyCode)
}

// Zero returns a zero Money value for the given currency
func Zero(currencyCode string) *Money {
	return New(0, currencyCode)
}

// Amount returns the amount in minor units (cents)
func (m *Money) Amount() int64 {
	if m == nil || m.m == nil {
		return 0
	}
	return m.m.Amount()
}

// Currency returns the ISO-4217 currency code
func (m *Money) Currency() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Currency().Code
}

// IsZero returns true if the amount is zero
func (m *Money) IsZero() bool {
	return m == nil || m.m == nil || m.m.IsZero()
}

// Add adds two Money values. Returns error if currencies don't match.
func (m *Money) Add(other *Money) (*Money, error) {
	if m == nil || m.m == nil {
		return other, nil
	}
	if other == nil || other.m == nil {
		return m, nil
	}

	result, err := m.m.Add(other.m)
	if err != nil {
		return nil, err
	}
	return &Money{m: result}, nil
}

// Subtract subtracts other from m. Returns error if currencies don't match.
func (m *Money) Subtract(other *Money) (*Money, error) {
	if m == nil || m.m == nil {
		if other == nil || other.m == nil {
			return Zero(DefaultCurrency), nil
		}
		return &Money{m: other.m.Negative()}, nil
	}
	if other == nil || other.m == nil {
		return m, nil
	}

	result, err := m.m.Subtract(other.m)
	if err != nil {
		return nil, err
	}
	return &Money{m: result}, nil
}

// Display returns a formatted string for display (e.g., "L1,234.56")
func (m *Money) Display() string {
	if m == nil || m.m == nil {
		return Zero(DefaultCurrency).Display()
	}
	return m.m.Display()
}

// ToDecimal converts to decimal.Decimal for precise calculations
func (m *Money) ToDecimal() decimal.Decimal {
	if m == nil || m.m == nil {
		return decimal.Zero
	}
	currency := m.m.Currency()
	d := decimal.NewFromInt(m.m.Amount())
	divisor := decimal.New(1, int32(currency.Fraction))
	return d.Div(divisor)
}

// ToFloat64 converts to float64 (use with caution for display only)
func (m *Money) ToFloat64() float64 {
	return m.ToDecimal().InexactFloat64()
}

// Percentage calculates a percentage of the amount.
// percent is the percentage value (e.g., 15.5 for 15.5%)
func (m *Money) Percentage(percent float64) *Money {
	if m == nil || m.m == nil {
		return Zero(DefaultCurrency)
	}

	pct := decimal.NewFromFloat(percent).Div(decimal.NewFromInt(100))
	return NewFromDecimal(m.ToDecimal().Mul(pct), m.Currency())
}

// Tax calculates the tax amount for a given tax rate.
// taxRate is the tax percentage (e.g., 15 for 15%)
func (m *Money) Tax(taxRate float64) *Money {
	return m.Percentage(taxRate)
}

// EffectiveRate returns tax as a percentage of m, rounded to 2 places.
// Zero when m is zero.
func (m *Money) EffectiveRate(tax *Money) decimal.Decimal {
	if m.IsZero() {
		return decimal.Zero
	}
	return tax.ToDecimal().Div(m.ToDecimal()).Mul(decimal.NewFromInt(100)).Round(2)
}
