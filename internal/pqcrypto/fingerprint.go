package pqcrypto

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Fingerprint returns the 16-byte content fingerprint of data: SHA-256
// truncated to FingerprintSize bytes.
func Fingerprint(data []byte) []byte {
	sum := sha256.Sum256(data)
	fp := make([]byte, FingerprintSize)
	copy(fp, sum[:FingerprintSize])
	return fp
}

// FormatFingerprint renders fingerprint bytes as colon-separated lowercase
// hex byte pairs, e.g. "4f:a3:..". A full 16-byte fingerprint renders as
// 47 characters.
func FormatFingerprint(fp []byte) string {
	var b strings.Builder
	b.Grow(len(fp)*3 - 1)
	for i, c := range fp {
		if i > 0 {
			b.WriteByte(':')
		}
		fmt.Fprintf(&b, "%02x", c)
	}
	return b.String()
}

// FormatShortFingerprint renders the first 4 fingerprint bytes as
// colon-separated hex pairs ("4f:a3:9c:01", 11 characters), the form shown
// next to key names.
func FormatShortFingerprint(fp []byte) string {
	if len(fp) > ShortFingerprintSize {
		fp = fp[:ShortFingerprintSize]
	}
	return FormatFingerprint(fp)
}

// FormatGroupFingerprint renders the first 4 fingerprint bytes as plain
// lowercase hex ("4fa39c01", 8 characters), the colon-free form embedded
// in message headers.
func FormatGroupFingerprint(fp []byte) string {
	if len(fp) > ShortFingerprintSize {
		fp = fp[:ShortFingerprintSize]
	}
	return hex.EncodeToString(fp)
}

// ValidGroupFingerprint reports whether s is an 8-character lowercase hex
// group fingerprint.
func ValidGroupFingerprint(s string) bool {
	if len(s) != ShortFingerprintSize*2 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// ValidShortFingerprint reports whether s is an 11-character
// colon-separated short key fingerprint such as "4f:a3:9c:01".
func ValidShortFingerprint(s string) bool {
	if len(s) != ShortFingerprintSize*3-1 {
		return false
	}
	for i, c := range s {
		if i%3 == 2 {
			if c != ':' {
				return false
			}
			continue
		}
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
