package util

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
)

// RandomBytes generates cryptographically secure random bytes
func RandomBytes(length int) ([]byte, error) {
	buf := make([]byte, length)
	_, err := rand.Read(buf)
	return buf, err
}

// RandomHex returns a hex string built from byteLen random bytes, matching the
// client id/secret format (16 bytes -> 32 chars, 32 bytes -> 64 chars).
func RandomHex(byteLen int) (string, error) {
	bytes, err := RandomBytes(byteLen)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// RandomSecret returns a printable random secret of the given length
func RandomSecret(length int) (string, error) {
	bytes, err := RandomBytes(length)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes)[:length], nil
}

// RandomOTP returns a 6-digit numeric code drawn uniformly from
// [100000, 999999].
func RandomOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
