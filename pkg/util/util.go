// Package util holds the shared byte and identifier helpers.
package util

import (
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"regexp"
	"time"
)

const contactTokenLength = 10

var numberPattern = regexp.MustCompile(`^\+[0-9]{10,}$`)

// ContactToken derives the truncated digest under which a number is known to
// contact discovery.
func ContactToken(number string) []byte {
	digest := sha1.Sum([]byte(number))
	return digest[:contactTokenLength]
}

// EncodedContactToken is the unpadded base64 form of ContactToken.
func EncodedContactToken(number string) string {
	return base64.StdEncoding.WithPadding(base64.NoPadding).EncodeToString(ContactToken(number))
}

// IsValidNumber reports whether number is in E.164 form.
func IsValidNumber(number string) bool {
	return numberPattern.MatchString(number)
}

// IsEmpty reports whether s has no content.
func IsEmpty(s string) bool {
	return len(s) == 0
}

// Combine concatenates the parts into one slice.
func Combine(parts ...[]byte) []byte {
	var total int
	for _, p := range parts {
		total += len(p)
	}
	combined := make([]byte, 0, total)
	for _, p := range parts {
		combined = append(combined, p...)
	}
	return combined
}

// Truncate returns the first length bytes of element.
func Truncate(element []byte, length int) []byte {
	result := make([]byte, length)
	copy(result, element)
	return result
}

// Split slices input into consecutive parts of the given lengths. The lengths
// must consume input exactly.
func Split(input []byte, lengths ...int) ([][]byte, error) {
	var total int
	for _, l := range lengths {
		total += l
	}
	if total != len(input) {
		return nil, fmt.Errorf("split lengths sum to %d, input is %d bytes", total, len(input))
	}

	parts := make([][]byte, len(lengths))
	offset := 0
	for i, l := range lengths {
		part := make([]byte, l)
		copy(part, input[offset:offset+l])
		parts[i] = part
		offset += l
	}
	return parts, nil
}

// TodayInMillis is midnight UTC of the current day in epoch milliseconds.
func TodayInMillis() int64 {
	return TodayInMillisAt(time.Now())
}

// TodayInMillisAt is TodayInMillis for an arbitrary reference time.
func TodayInMillisAt(now time.Time) int64 {
	return now.UTC().Truncate(24 * time.Hour).UnixMilli()
}
