package numbers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_CalculateAccruedInterest(t *testing.T) {
	t.Run("Should accrue 30 days at 200 bps on 1000 tokens", func(t *testing.T) {
		// 1000 tokens at 18 decimals
		interest, err := CalculateAccruedInterest("1000000000000000000000", 200, 30*24*60*60)
		assert.Nil(t, err)
		assert.Equal(t, "1643835616438356164", interest)
	})
	t.Run("Should floor sub-unit interest on tiny principals", func(t *testing.T) {
		interest, err := CalculateAccruedInterest("1000", 200, 30*24*60*60)
		assert.Nil(t, err)
		assert.Equal(t, "1", interest)
	})
	t.Run("Should accrue zero for zero elapsed time", func(t *testing.T) {
		interest, err := CalculateAccruedInterest("1000000000000000000000", 200, 0)
		assert.Nil(t, err)
		assert.Equal(t, "0", interest)
	})
	t.Run("Should accrue zero on zero principal", func(t *testing.T) {
		interest, err := CalculateAccruedInterest("0", 200, 365*24*60*60)
		assert.Nil(t, err)
		assert.Equal(t, "0", interest)
	})
	t.Run("Should return the full rate over exactly one year", func(t *testing.T) {
		interest, err := CalculateAccruedInterest("1000000000000000000000", 200, SecondsPerYear)
		assert.Nil(t, err)
		// 2% of 1000 tokens
		assert.Equal(t, "20000000000000000000", interest)
	})
	t.Run("Should reject malformed principals", func(t *testing.T) {
		_, err := CalculateAccruedInterest("not-a-number", 200, 1000)
		assert.NotNil(t, err)

		_, err = CalculateAccruedInterest("-5", 200, 1000)
		assert.NotNil(t, err)
	})
}

func Test_ApplyBoost(t *testing.T) {
	t.Run("Should scale by a 1.1x multiplier", func(t *testing.T) {
		boosted, err := ApplyBoost("100", 11000)
		assert.Nil(t, err)
		assert.Equal(t, "110", boosted)
	})
	t.Run("Should be identity at the base multiplier", func(t *testing.T) {
		boosted, err := ApplyBoost("12345", 10000)
		assert.Nil(t, err)
		assert.Equal(t, "12345", boosted)
	})
	t.Run("Should floor fractional results", func(t *testing.T) {
		boosted, err := ApplyBoost("3", 10500)
		assert.Nil(t, err)
		assert.Equal(t, "3", boosted)
	})
}

func Test_RatePortions(t *testing.T) {
	t.Run("Should scale the RWA yield by its allocation", func(t *testing.T) {
		// 5% yield on half the funds contributes 250 bps
		assert.Equal(t, uint64(250), RwaPortionBps(500, 5000))
	})
	t.Run("Should annualize daily DEX fees against TVL", func(t *testing.T) {
		portion, err := DexPortionBps("1000", "3650000")
		assert.Nil(t, err)
		assert.Equal(t, uint64(1000), portion)
	})
	t.Run("Should return zero when TVL is zero", func(t *testing.T) {
		portion, err := DexPortionBps("1000", "0")
		assert.Nil(t, err)
		assert.Equal(t, uint64(0), portion)
	})
}

func Test_AmountArithmetic(t *testing.T) {
	t.Run("Should add and subtract", func(t *testing.T) {
		sum, err := Add("100", "23")
		assert.Nil(t, err)
		assert.Equal(t, "123", sum)

		diff, err := Sub("123", "23")
		assert.Nil(t, err)
		assert.Equal(t, "100", diff)
	})
	t.Run("Should reject subtraction underflow", func(t *testing.T) {
		_, err := Sub("10", "11")
		assert.NotNil(t, err)
	})
	t.Run("Should compare amounts numerically", func(t *testing.T) {
		cmp, err := Cmp("9", "10")
		assert.Nil(t, err)
		assert.Equal(t, -1, cmp)
	})
}

func Test_FormatTokens(t *testing.T) {
	assert.Equal(t, "1.643835616438356164", FormatTokens("1643835616438356164"))
	assert.Equal(t, "1000", FormatTokens("1000000000000000000000"))
}
