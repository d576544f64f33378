package tswriter

import "strings"

const (
	maxFieldLen       = 10000
	maxObjectMetaLen  = 200
	maxTagLen         = 256
)

// sanitizeField sanitises a string field value: control characters become
// spaces, length is capped (spec §4.1).
func sanitizeField(s string, max int) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(r)
	}
	out := b.String()
	if len(out) > max {
		out = out[:max]
	}
	return out
}

// SanitizeField applies the general (10000-char) field cap.
func SanitizeField(s string) string { return sanitizeField(s, maxFieldLen) }

// SanitizeObjectMeta applies the object-store metadata (200-char) field
// cap.
func SanitizeObjectMeta(s string) string { return sanitizeField(s, maxObjectMetaLen) }

// replacer strips backslashes and replaces comma/equals/space/newline/CR
// with underscore, per the tag-value sanitisation rule (spec §4.1).
var tagReplacer = strings.NewReplacer(
	"\\", "",
	",", "_",
	"=", "_",
	" ", "_",
	"\n", "_",
	"\r", "_",
)

// SanitizeTag sanitises a tag value: strips backslashes, replaces
// `, = <space> newline CR` with `_`, caps length at 256.
func SanitizeTag(s string) string {
	out := tagReplacer.Replace(s)
	if len(out) > maxTagLen {
		out = out[:maxTagLen]
	}
	return out
}
