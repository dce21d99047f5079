// Package dedup computes listing identity and resolves repeated observations
// of the same posting into one canonical job.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"github.com/jonathan/job-matcher/internal/types"
)

// fieldSeparator keeps "ab"+"c" and "a"+"bc" from hashing identically.
const fieldSeparator = "|"

// Normalize lower-cases s, strips punctuation and collapses whitespace.
func Normalize(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			continue
		case unicode.IsSpace(r):
			sb.WriteRune(' ')
		default:
			sb.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

// Fingerprint returns the identity hash of a posting.
func Fingerprint(title, company, primaryLocation string) string {
	key := Normalize(title) + fieldSeparator + Normalize(company) + fieldSeparator + Normalize(primaryLocation)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// FingerprintJob computes the fingerprint of a job from its identity fields.
func FingerprintJob(job *types.Job) string {
	return Fingerprint(job.Title, job.Company, job.PrimaryLocation())
}
