package utils

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_NormalizeAccount(t *testing.T) {
	assert.Equal(t, "0xabcdef", NormalizeAccount("0xAbCdEf"))
	assert.Equal(t, "0xabc", NormalizeAccount("  0xABC "))
	assert.True(t, AreAccountsEqual("0xABC", " 0xabc"))
	assert.False(t, AreAccountsEqual("0xabc", "0xabd"))
}

func Test_HexConversion(t *testing.T) {
	b := []byte{0xde, 0xad, 0xbe, 0xef}
	s := ConvertBytesToString(b)
	assert.Equal(t, "0xdeadbeef", s)

	roundTripped, err := ConvertStringToBytes(s)
	assert.Nil(t, err)
	assert.Equal(t, b, roundTripped)

	unprefixed, err := ConvertStringToBytes("deadbeef")
	assert.Nil(t, err)
	assert.Equal(t, b, unprefixed)

	_, err = ConvertStringToBytes("0xnothex")
	assert.NotNil(t, err)
}

func Test_Map(t *testing.T) {
	out := Map([]int{1, 2, 3}, func(i int, index uint64) string {
		return fmt.Sprintf("%d:%d", index, i*2)
	})
	assert.Equal(t, []string{"0:2", "1:4", "2:6"}, out)
}
