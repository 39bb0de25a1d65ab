package grid

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const urlDisplayLimit = 30

// ResolveField reads a field from a record, following dot-separated
// relationship paths. A missing or non-object intermediate yields "".
func ResolveField(record Record, path string) any {
	if record == nil || path == "" {
		return ""
	}
	if !strings.Contains(path, ".") {
		return record[path]
	}
	var value any = record
	for _, part := range strings.Split(path, ".") {
		obj, ok := asObject(value)
		if !ok {
			return ""
		}
		value = obj[part]
	}
	return value
}

// RelatedRecordID returns the Id of the related object a relationship path
// reads through, or the record's own Id for plain fields.
func RelatedRecordID(record Record, path string) string {
	rel, _, ok := strings.Cut(path, ".")
	if !ok {
		return record.ID()
	}
	obj, ok := asObject(record[rel])
	if !ok {
		return ""
	}
	return Record(obj).ID()
}

func asObject(v any) (map[string]any, bool) {
	switch obj := v.(type) {
	case Record:
		return obj, obj != nil
	case map[string]any:
		return obj, obj != nil
	default:
		return nil, false
	}
}

// FormatValue renders a value for display. Booleans become Yes/No; dates,
// currency and percentages are passed through unformatted for locale-aware
// rendering downstream.
func FormatValue(v any, fieldType FieldType) string {
	if v == nil {
		return ""
	}
	if fieldType == TypeBoolean {
		if truthy(v) {
			return "Yes"
		}
		return "No"
	}
	return stringify(v)
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// truthy mirrors the loose truthiness the grid uses to decide whether a value
// is present: empty strings, zero numbers, false and nil are absent.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case float64:
		return val != 0
	case float32:
		return val != 0
	case int:
		return val != 0
	case int64:
		return val != 0
	default:
		return true
	}
}

// TruncateURL shows only the host of an absolute URL, falling back to the
// first 30 characters of the raw string followed by an ellipsis.
func TruncateURL(raw string) string {
	if raw == "" {
		return ""
	}
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" && u.Host != "" {
		return u.Hostname()
	}
	runes := []rune(raw)
	if len(runes) > urlDisplayLimit {
		return string(runes[:urlDisplayLimit]) + "..."
	}
	return raw
}
