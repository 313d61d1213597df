package chunk

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint computes the deterministic content hash used for chunk
// deduplication: SHA-256 over "source|page|text", hex encoded. The page
// component is empty when the chunk has no page marker, so the same text
// on different pages of one document fingerprints differently.
func Fingerprint(source, page, text string) string {
	h := sha256.New()
	h.Write([]byte(source))
	h.Write([]byte{'|'})
	h.Write([]byte(page))
	h.Write([]byte{'|'})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
