package utils

import (
	"fmt"
	"hash/fnv"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// NewRunID derives a readable, unique-enough run identifier from the scanned
// source path and wall clock: "<slug>-<unix>-<hash>".
func NewRunID(sourcePath string) string {
	base := slugifyASCII(filepath.Base(filepath.Clean(sourcePath)))
	if base == "" {
		base = "run"
	}
	now := time.Now().UTC()
	return fmt.Sprintf("%s-%d-%s", base, now.Unix(), shortHashHex(sourcePath+now.String()))
}

// RecordID returns a surrogate id for a mock-store record.
func RecordID(collection string, n int) string {
	return fmt.Sprintf("%s-%s-%d", slugifyASCII(collection), shortHashHex(collection), n)
}

func shortHashHex(s string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return fmt.Sprintf("%08x", uint32(h.Sum64()&0xffffffff))
}

func slugifyASCII(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	lastDash := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
