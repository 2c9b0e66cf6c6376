package valueobjects

import (
	"fmt"
	"strings"

	"github.com/KidRide/kidride-backend/errors"
	"github.com/shopspring/decimal"
)

// Currency represents a valid ISO 4217 currency code
type Currency string

const (
	INR Currency = "INR"
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
)

var validCurrencies = map[Currency]bool{
	INR: true,
	USD: true,
	EUR: true,
	GBP: true,
}

const minorUnitsPerMajor = 100

var hundred = decimal.NewFromInt(100)

// Money is an amount in the smallest currency unit (paise, cents).
// Ledger arithmetic never leaves integer minor units.
type Money struct {
	minor    int64
	currency Currency
}

// NewMoney creates a Money value from minor units.
func NewMoney(minor int64, currency Currency) (Money, error) {
	currency = Currency(strings.ToUpper(string(currency)))
	if !validCurrencies[currency] {
		return Money{}, errors.ValidationFailed(
			"invalid currency",
			fmt.Sprintf("currency %s is not supported", currency),
		)
	}
	if minor < 0 {
		return Money{}, errors.ValidationFailed("invalid amount", "amount cannot be negative")
	}
	return Money{minor: minor, currency: currency}, nil
}

// NewMoneyFromString parses a major-unit string such as "125.50".
func NewMoneyFromString(amount string, currency string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, errors.ValidationFailed("invalid amount format", err.Error())
	}
	if d.Exponent() < -2 {
		return Money{}, errors.ValidationFailed("invalid amount", "amount cannot have more than 2 decimal places")
	}
	return NewMoney(d.Mul(hundred).IntPart(), Currency(currency))
}

func (m Money) Minor() int64 { return m.minor }

func (m Money) Currency() Currency { return m.currency }

// Major returns the amount in major units, e.g. 2500 minor -> 25.00.
func (m Money) Major() decimal.Decimal {
	return MinorToMajor(m.minor)
}

// MinorToMajor converts a minor-unit amount without a currency check.
func MinorToMajor(minor int64) decimal.Decimal {
	return decimal.New(minor, 0).Div(decimal.NewFromInt(minorUnitsPerMajor))
}

func (m Money) IsZero() bool { return m.minor == 0 }

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.currency, m.Major().StringFixed(2))
}

// Percent is a rate expressed in percent, e.g. 3.30.
type Percent struct {
	value decimal.Decimal
}

// ParsePercent accepts values in [0, 100].
func ParsePercent(s string) (Percent, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Percent{}, fmt.Errorf("parse percent %q: %w", s, err)
	}
	if d.IsNegative() || d.GreaterThan(hundred) {
		return Percent{}, fmt.Errorf("percent %s out of range", d.String())
	}
	return Percent{value: d}, nil
}

// WholePercent builds a Percent from an integer such as a budget threshold.
func WholePercent(v int) Percent {
	return Percent{value: decimal.NewFromInt(int64(v))}
}

// MustPercent is ParsePercent for package-level constants.
func MustPercent(s string) Percent {
	p, err := ParsePercent(s)
	if err != nil {
		panic(err)
	}
	return p
}

// CeilOf returns the rate applied to amount, rounded up to a whole minor unit.
func (p Percent) CeilOf(amount int64) int64 {
	return decimal.NewFromInt(amount).Mul(p.value).Div(hundred).Ceil().IntPart()
}

// RatioReached reports whether part/whole*100 >= p. A zero whole never reaches.
func (p Percent) RatioReached(part, whole int64) bool {
	if whole <= 0 {
		return false
	}
	return decimal.NewFromInt(part).Mul(hundred).GreaterThanOrEqual(p.value.Mul(decimal.NewFromInt(whole)))
}

func (p Percent) String() string {
	return p.value.String() + "%"
}

// Average divides total by count rounding half up; zero count yields zero.
func Average(total int64, count int) int64 {
	if count <= 0 {
		return 0
	}
	return decimal.NewFromInt(total).Div(decimal.NewFromInt(int64(count))).Round(0).IntPart()
}
