package document

import "strings"

// ForbiddenKeyChars lists the characters the document store rejects in keys.
const ForbiddenKeyChars = ".$#[]/"

var keyReplacer = strings.NewReplacer(
	".", "_",
	"$", "_",
	"#", "_",
	"[", "_",
	"]", "_",
	"/", "_",
)

// SanitizeKey replaces every forbidden character in key with an underscore.
func SanitizeKey(key string) string {
	if !strings.ContainsAny(key, ForbiddenKeyChars) {
		return key
	}
	return keyReplacer.Replace(key)
}

// Sanitize returns a copy of v in which every mapping key has been passed through
// SanitizeKey. Scalars, sequence lengths and nesting are left untouched.
//
// Two keys of one mapping that sanitize to the same string collapse into a single
// entry: it keeps the position of the first key and the value of the last.
func Sanitize(v Value) Value {
	switch v.kind {
	case KindSequence:
		items := make([]Value, len(v.items))
		for i, item := range v.items {
			items[i] = Sanitize(item)
		}
		return Value{kind: KindSequence, items: items}
	case KindMapping:
		b := NewBuilder(len(v.fields))
		for _, f := range v.fields {
			b.Set(SanitizeKey(f.Key), Sanitize(f.Value))
		}
		return b.Build()
	default:
		return v
	}
}
