package valueobjects

import (
	"crypto/rand"
	"regexp"
	"strings"
)

// Gallery codes are the human-typable guest entry point: the event name
// uppercased with every non-alphanumeric rune replaced by a hyphen,
// truncated, plus a short random suffix. SMITH WEDDING -> SMITH-WEDDING-7K2Q.
const (
	galleryCodeNameMax   = 20
	galleryCodeSuffixLen = 4
	galleryCodeCharset   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var galleryCodePattern = regexp.MustCompile(`^[A-Z0-9-]+-[A-Z0-9]{4}$`)

// NewGalleryCode derives a candidate code from an event name. Uniqueness
// is not guaranteed here; the event store checks for collisions and
// regenerates before insert.
func NewGalleryCode(eventName string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(eventName) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('-')
		}
		if b.Len() >= galleryCodeNameMax {
			break
		}
	}
	name := b.String()
	if name == "" {
		name = "EVENT"
	}
	return name + "-" + randomSuffix(galleryCodeSuffixLen)
}

// IsGalleryCode reports whether s has the shape of a generated code.
func IsGalleryCode(s string) bool {
	return galleryCodePattern.MatchString(s)
}

func randomSuffix(n int) string {
	buf := make([]byte, n)
	// crypto/rand.Read never returns a partial read without an error;
	// on error fall back to a fixed suffix rather than panicking.
	if _, err := rand.Read(buf); err != nil {
		return strings.Repeat("0", n)
	}
	for i, b := range buf {
		buf[i] = galleryCodeCharset[int(b)%len(galleryCodeCharset)]
	}
	return string(buf)
}
