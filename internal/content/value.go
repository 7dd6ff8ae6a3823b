package content

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Kind tags a field value with its stringification rule.
type Kind int

const (
	KindText Kind = iota
	KindMarkdown
	KindBoolean
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindMarkdown:
		return "markdown"
	case KindBoolean:
		return "boolean"
	default:
		return "other"
	}
}

// Value is a typed field value.
type Value struct {
	Kind Kind
	// Text holds the source for KindText and KindMarkdown.
	Text string
	Bool bool
	// Raw holds the decoded value for KindOther.
	Raw any
}

// Text returns a plain text value.
func Text(s string) Value { return Value{Kind: KindText, Text: s} }

// Markdown returns a rich-text value holding its source.
func Markdown(src string) Value { return Value{Kind: KindMarkdown, Text: src} }

// Boolean returns a boolean value.
func Boolean(b bool) Value { return Value{Kind: KindBoolean, Bool: b} }

// Other wraps any other decoded value.
func Other(v any) Value { return Value{Kind: KindOther, Raw: v} }

// FromYAML tags a decoded frontmatter value. Strings become markdown when
// markdown is true.
func FromYAML(v any, markdown bool) Value {
	switch t := v.(type) {
	case string:
		if markdown {
			return Markdown(t)
		}
		return Text(t)
	case bool:
		return Boolean(t)
	default:
		return Other(v)
	}
}

// IsTrue reports whether v is a boolean true.
func (v Value) IsTrue() bool {
	return v.Kind == KindBoolean && v.Bool
}

// String renders the value for the search index. Markdown yields its source,
// never a rendered form.
func (v Value) String() (string, error) {
	switch v.Kind {
	case KindText, KindMarkdown:
		return v.Text, nil
	case KindBoolean:
		return strconv.FormatBool(v.Bool), nil
	case KindOther:
		return stringifyOther(v.Raw)
	default:
		return "", fmt.Errorf("content: unknown value kind %d", v.Kind)
	}
}

func stringifyOther(raw any) (string, error) {
	switch t := raw.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case uint64:
		return strconv.FormatUint(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format(time.DateOnly), nil
		}
		return t.Format(time.RFC3339), nil
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return "", fmt.Errorf("content: stringify %T: %w", raw, err)
		}
		return string(data), nil
	}
}
