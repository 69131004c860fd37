package ast

// RawString holds a parsed string literal together with enough of its original
// source text to round-trip through the formatter without relosing escape
// style. Value is always the unquoted, unescaped logical value; Raw is the
// original quoted source text (including quotes) when the string came from
// parsing, and empty when the value was constructed programmatically.
type RawString struct {
	Value string
	Raw   string
}

// NewRawString creates a RawString with no original source text attached.
// Used when building directives programmatically rather than parsing them.
func NewRawString(value string) RawString {
	return RawString{Value: value}
}

// NewRawStringWithRaw creates a RawString that remembers its original quoted
// source text, so the formatter can reproduce the exact escaping on output.
func NewRawStringWithRaw(raw, value string) RawString {
	return RawString{Value: value, Raw: raw}
}

// HasOriginal reports whether the original quoted source text is available.
func (r RawString) HasOriginal() bool {
	return r.Raw != ""
}

// QuotedContent returns the original quoted source text, including the
// surrounding double quotes.
func (r RawString) QuotedContent() string {
	return r.Raw
}

func (r RawString) String() string {
	return r.Value
}

// IsEmpty reports whether the value is both unset and carries no original
// source text, i.e. the field was never populated.
func (r RawString) IsEmpty() bool {
	return r.Value == "" && r.Raw == ""
}

// EscapeType records which escaping convention a quoted string used in the
// source so the formatter can reproduce it when asked to preserve style.
type EscapeType int

const (
	// EscapeTypeUnknown means no escape style was recorded (constructed value).
	EscapeTypeUnknown EscapeType = iota
	// EscapeTypeNone means the string contained no characters requiring escaping.
	EscapeTypeNone
	// EscapeTypeCStyle means the string used C-style backslash escapes (\n, \t, \").
	EscapeTypeCStyle
)

// StringMetadata records the original source form of a string value so the
// formatter can choose to reproduce it verbatim instead of re-escaping the
// logical value.
type StringMetadata struct {
	Raw   string
	Style EscapeType
}

// NewStringMetadata records the original quoted text and its escape style.
func NewStringMetadata(raw string, style EscapeType) *StringMetadata {
	return &StringMetadata{Raw: raw, Style: style}
}

// HasOriginal reports whether original source text was recorded.
func (m *StringMetadata) HasOriginal() bool {
	return m != nil && m.Raw != ""
}

// QuotedContent returns the original quoted source text, including quotes.
func (m *StringMetadata) QuotedContent() string {
	if m == nil {
		return ""
	}
	return m.Raw
}
