package validation

import "testing"

func customerSchema() map[string]interface{} {
	return NewSchema("customer", map[string]*SchemaProperty{
		"name":    StringProperty("name", "", true),
		"email":   StringProperty("email", FormatEmail, false),
		"contact": StringProperty("contact", FormatPhone, false),
		"tags":    ListProperty("tags", []string{"a", "b"}, false),
	}, []string{"name"})
}

func TestValidate_Valid(t *testing.T) {
	v := NewValidator()

	err := v.Validate(map[string]interface{}{
		"name":    "Jane",
		"email":   "jane@shop.io",
		"contact": "0123456789",
		"tags":    []string{"a"},
	}, customerSchema())
	if err != nil {
		t.Errorf("expected valid data, got %v", err)
	}
}

func TestValidate_MissingRequired(t *testing.T) {
	v := NewValidator()

	err := v.Validate(map[string]interface{}{}, customerSchema())
	ve := GetValidationErrors(err)
	if ve == nil {
		t.Fatalf("expected validation errors, got %v", err)
	}
	if msg := ve.Fields()["name"]; msg != "is required" {
		t.Errorf("name message = %q, expected 'is required'", msg)
	}
}

func TestValidate_Formats(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name  string
		field string
		value string
		valid bool
	}{
		{"email ok", "email", "a@b.com", true},
		{"email without tld", "email", "a@b", false},
		{"email with space", "email", "a b@c.com", false},
		{"phone ok", "contact", "123456789012345", true},
		{"phone too short", "contact", "123456789", false},
		{"phone too long", "contact", "1234567890123456", false},
		{"phone with letters", "contact", "12345abcde", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(map[string]interface{}{"name": "x", tt.field: tt.value}, customerSchema())
			if tt.valid && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.valid {
				ve := GetValidationErrors(err)
				if ve == nil {
					t.Fatalf("expected validation error, got %v", err)
				}
				if ve.Fields()[tt.field] != "has an invalid format" {
					t.Errorf("fields = %v", ve.Fields())
				}
			}
		})
	}
}

func TestValidate_UnknownOption(t *testing.T) {
	v := NewValidator()

	err := v.Validate(map[string]interface{}{"name": "x", "tags": []string{"z"}}, customerSchema())
	if GetValidationErrors(err) == nil {
		t.Errorf("expected validation error for unknown option, got %v", err)
	}
}

func TestValidate_EmptySchema(t *testing.T) {
	v := NewValidator()

	if err := v.Validate(map[string]interface{}{"anything": 1}, nil); err != nil {
		t.Errorf("empty schema should allow anything, got %v", err)
	}
}
