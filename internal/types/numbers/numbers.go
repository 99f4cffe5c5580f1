package numbers

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	// BpsDenominator is the basis point scale; 10000 bps = 100%.
	BpsDenominator = 10000

	// SecondsPerYear uses a 365-day year, matching the annualization of the
	// DEX fee yield.
	SecondsPerYear = 31536000

	// MaxRateBps is the widest annual rate the rate state accepts. Rates are
	// persisted as 16-bit values, so anything wider is rejected at the
	// domain boundary rather than truncated.
	MaxRateBps = 65535
)

// NewBig257 returns a new big.Int sized to fully support math on uint256
// token amounts without overflow on intermediate products.
func NewBig257() *big.Int {
	return big.NewInt(257)
}

// ParseAmount parses a non-negative integer token amount in its smallest
// denomination.
func ParseAmount(amount string) (*big.Int, error) {
	v, ok := NewBig257().SetString(amount, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount '%s'", amount)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("amount '%s' is negative", amount)
	}
	return v, nil
}

// CalculateAccruedInterest computes the interest owed on a principal over an
// elapsed number of seconds at an annual rate in basis points. The product is
// computed fully before the single division so rounding loss is limited to
// the final floor.
//
//	interest = principal * rateBps * elapsedSeconds / (SecondsPerYear * BpsDenominator)
func CalculateAccruedInterest(principal string, rateBps uint64, elapsedSeconds uint64) (string, error) {
	p, err := ParseAmount(principal)
	if err != nil {
		return "", err
	}

	numerator := NewBig257().Mul(p, new(big.Int).SetUint64(rateBps))
	numerator.Mul(numerator, new(big.Int).SetUint64(elapsedSeconds))

	denominator := new(big.Int).Mul(big.NewInt(SecondsPerYear), big.NewInt(BpsDenominator))

	return numerator.Div(numerator, denominator).String(), nil
}

// ApplyBoost scales a base reward by a fixed-point multiplier where 10000
// means 1.0x, flooring the result.
func ApplyBoost(amount string, multiplierBps uint64) (string, error) {
	a, err := ParseAmount(amount)
	if err != nil {
		return "", err
	}
	scaled := NewBig257().Mul(a, new(big.Int).SetUint64(multiplierBps))
	return scaled.Div(scaled, big.NewInt(BpsDenominator)).String(), nil
}

// PortionOf returns amount * weightBps / 10000, floored.
func PortionOf(amount string, weightBps uint64) (string, error) {
	return ApplyBoost(amount, weightBps)
}

// RwaPortionBps computes the RWA contribution to the combined annual rate:
// the RWA yield scaled by the share of funds allocated to it.
func RwaPortionBps(rwaAnnualYieldBps uint64, allocationRatioBps uint64) uint64 {
	return rwaAnnualYieldBps * allocationRatioBps / BpsDenominator
}

// DexPortionBps annualizes a daily fee take against total TVL and expresses
// it in basis points. Returns 0 when TVL is zero.
func DexPortionBps(dailyFees string, totalTVL string) (uint64, error) {
	fees, err := ParseAmount(dailyFees)
	if err != nil {
		return 0, err
	}
	tvl, err := ParseAmount(totalTVL)
	if err != nil {
		return 0, err
	}
	if tvl.Sign() == 0 {
		return 0, nil
	}

	numerator := NewBig257().Mul(fees, big.NewInt(365*BpsDenominator))
	portion := numerator.Div(numerator, tvl)
	if !portion.IsUint64() {
		return 0, fmt.Errorf("annualized fee yield overflows: %s bps", portion.String())
	}
	return portion.Uint64(), nil
}

// Add returns the sum of two amounts.
func Add(a string, b string) (string, error) {
	av, err := ParseAmount(a)
	if err != nil {
		return "", err
	}
	bv, err := ParseAmount(b)
	if err != nil {
		return "", err
	}
	return av.Add(av, bv).String(), nil
}

// Sub returns a - b, erroring if the result would be negative.
func Sub(a string, b string) (string, error) {
	av, err := ParseAmount(a)
	if err != nil {
		return "", err
	}
	bv, err := ParseAmount(b)
	if err != nil {
		return "", err
	}
	if av.Cmp(bv) < 0 {
		return "", fmt.Errorf("subtraction underflow: %s - %s", a, b)
	}
	return av.Sub(av, bv).String(), nil
}

// Cmp compares two amounts, returning -1, 0 or 1.
func Cmp(a string, b string) (int, error) {
	av, err := ParseAmount(a)
	if err != nil {
		return 0, err
	}
	bv, err := ParseAmount(b)
	if err != nil {
		return 0, err
	}
	return av.Cmp(bv), nil
}

// FormatTokens renders a smallest-denomination amount as a human-readable
// 18-decimal token quantity for logs and diagnostics.
func FormatTokens(amount string) string {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return amount
	}
	return d.Shift(-18).String()
}
