package validation

// JSON Schema property types
type PropertyType string

const (
	PropertyTypeString  PropertyType = "string"
	PropertyTypeNumber  PropertyType = "number"
	PropertyTypeBoolean PropertyType = "boolean"
	PropertyTypeArray   PropertyType = "array"
)

// Field formats understood by the form validator.
const (
	FormatEmail = "email"
	FormatPhone = "phone"
)

// Patterns are deliberately loose; the backend has the final word.
var formatPatterns = map[string]string{
	FormatEmail: `^\S+@\S+\.\S+$`,
	FormatPhone: `^[0-9]{10,15}$`,
}

// PatternFor returns the regular expression enforced for format, if any.
func PatternFor(format string) (string, bool) {
	p, ok := formatPatterns[format]
	return p, ok
}

// Schema builder helpers
type SchemaProperty struct {
	Type      PropertyType    `json:"type"`
	Title     string          `json:"title,omitempty"`
	Pattern   string          `json:"pattern,omitempty"`
	MinLength *int            `json:"minLength,omitempty"`
	MinItems  *int            `json:"minItems,omitempty"`
	Enum      []interface{}   `json:"enum,omitempty"`
	Items     *SchemaProperty `json:"items,omitempty"`
}

func NewSchema(title string, properties map[string]*SchemaProperty, required []string) map[string]interface{} {
	props := make(map[string]interface{})
	for k, v := range properties {
		props[k] = v
	}
	if required == nil {
		required = []string{}
	}

	return map[string]interface{}{
		"type":       "object",
		"title":      title,
		"properties": props,
		"required":   required,
	}
}

func intPtr(n int) *int { return &n }

// StringProperty describes a text value, constrained by format when it has a known pattern.
func StringProperty(title, format string, required bool) *SchemaProperty {
	p := &SchemaProperty{Type: PropertyTypeString, Title: title}
	if pattern, ok := PatternFor(format); ok {
		p.Pattern = pattern
	}
	if required {
		p.MinLength = intPtr(1)
	}
	return p
}

// ListProperty describes an array of strings, such as selected options or file names.
func ListProperty(title string, options []string, required bool) *SchemaProperty {
	items := &SchemaProperty{Type: PropertyTypeString}
	for _, o := range options {
		items.Enum = append(items.Enum, o)
	}
	p := &SchemaProperty{Type: PropertyTypeArray, Title: title, Items: items}
	if required {
		p.MinItems = intPtr(1)
	}
	return p
}
