package meta

import (
	"fmt"
	"strconv"
	"strings"
)

// Key parts are joined with keySeparator. Occurrences of keySeparator and
// keyEscape inside a part are prefixed with keyEscape, so distinct part
// lists never produce the same key.
const (
	keySeparator = "\x1f"
	keyEscape    = "\x1e"
)

var keyPartEscaper = strings.NewReplacer(
	keyEscape, keyEscape+keyEscape,
	keySeparator, keyEscape+keySeparator,
)

// Key builds an identity key from key values.
//
// Values are compared by their textual form, so an int64 primary key read
// from a driver and an int set by the caller produce the same key, as do
// a TEXT column holding "7" and the integer 7. ok is false when any part
// is nil.
func Key(parts ...any) (string, bool) {
	if len(parts) == 0 {
		return "", false
	}
	strs := make([]string, len(parts))
	for i, p := range parts {
		s, ok := normalizeKeyPart(p)
		if !ok {
			return "", false
		}
		strs[i] = keyPartEscaper.Replace(s)
	}
	return strings.Join(strs, keySeparator), true
}

// KeyOfColumns builds an identity key from the given columns of an entity.
func KeyOfColumns(e *Entity, cols []*Column) (string, bool) {
	if len(cols) == 0 {
		return "", false
	}
	parts := make([]any, len(cols))
	for i, c := range cols {
		parts[i] = c.ValueOf(e)
	}
	return Key(parts...)
}

func normalizeKeyPart(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case []byte:
		return string(val), true
	case int:
		return strconv.FormatInt(int64(val), 10), true
	case int32:
		return strconv.FormatInt(int64(val), 10), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case uint:
		return strconv.FormatUint(uint64(val), 10), true
	case uint32:
		return strconv.FormatUint(uint64(val), 10), true
	case uint64:
		return strconv.FormatUint(val, 10), true
	case fmt.Stringer:
		return val.String(), true
	default:
		return fmt.Sprint(val), true
	}
}

// NormalizeValue converts driver values into the forms entities carry:
// []byte becomes string, everything else is returned unchanged.
func NormalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
