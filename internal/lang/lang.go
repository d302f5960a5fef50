// Package lang classifies text into the language tags the speech providers understand.
package lang

// Tag is a short language code such as "en" or "hi".
type Tag string

const (
	English Tag = "en"
	Hindi   Tag = "hi"

	// Default is used when nothing has been read yet.
	Default = English
)

const (
	devanagariFirst = '\u0900'
	devanagariLast  = '\u097F'
)

// Detect returns Hindi if text contains any Devanagari code point, English otherwise.
// No other scripts are distinguished.
func Detect(text string) Tag {
	for _, r := range text {
		if r >= devanagariFirst && r <= devanagariLast {
			return Hindi
		}
	}
	return English
}

// String implements fmt.Stringer.
func (t Tag) String() string { return string(t) }
