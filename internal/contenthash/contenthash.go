// Package contenthash computes the content_hash used end-to-end by the
// write path and the disk cache: SHA-256 hex-lowercase over raw content
// bytes. See SPEC_FULL.md §9 (hash discrepancy resolution).
package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
)

func Compute(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
