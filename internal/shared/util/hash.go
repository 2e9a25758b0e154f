package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// SHA256Hex returns the lowercase hex SHA-256 digest of b.
func SHA256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// SaltedSHA256Hex digests value with salt appended. The salt never appears in the output.
func SaltedSHA256Hex(value, salt string) string {
	buf := make([]byte, 0, len(value)+len(salt))
	buf = append(buf, value...)
	buf = append(buf, salt...)
	return SHA256Hex(buf)
}
