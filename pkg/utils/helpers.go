// Package utils provides small helpers shared across the ledger services.
package utils

import (
	"encoding/hex"
	"strings"
)

// Map applies a mapper function to each element of a list and returns the
// resulting list.
func Map[A any, B any](coll []A, mapper func(i A, index uint64) B) []B {
	out := make([]B, 0, len(coll))
	for i, item := range coll {
		out = append(out, mapper(item, uint64(i)))
	}
	return out
}

// NormalizeAccount canonicalizes an account identity for use as a storage
// key. Account identities are case-insensitive opaque strings.
func NormalizeAccount(account string) string {
	return strings.ToLower(strings.TrimSpace(account))
}

// AreAccountsEqual compares two account identities, ignoring case.
func AreAccountsEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// ConvertBytesToString converts a byte slice to a hex string with 0x prefix.
func ConvertBytesToString(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// ConvertStringToBytes parses a hex string with optional 0x prefix.
func ConvertStringToBytes(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}
