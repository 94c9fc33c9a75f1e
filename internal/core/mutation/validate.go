package mutation

import (
	"strconv"
	"strings"

	"github.com/shopneo/console/internal/core/resource"
	"github.com/shopneo/console/internal/core/validation"
)

// Schema builds the JSON schema a form document must satisfy. Uploads are
// only required on create; an update keeps the stored file.
func Schema(def *resource.Definition, key resource.Key) map[string]interface{} {
	props := make(map[string]*validation.SchemaProperty, len(def.Fields))
	var required []string

	for _, f := range def.Fields {
		need := f.Required && !(f.Kind.IsFile() && !key.IsNew())
		switch f.Kind {
		case resource.KindNumber:
			props[f.Name] = &validation.SchemaProperty{Type: validation.PropertyTypeNumber, Title: f.Name}
		case resource.KindBoolean:
			props[f.Name] = &validation.SchemaProperty{Type: validation.PropertyTypeBoolean, Title: f.Name}
		case resource.KindMultiSelect:
			props[f.Name] = validation.ListProperty(f.Name, f.Options, need)
		case resource.KindCommaList, resource.KindSingleFile, resource.KindMultiFile:
			props[f.Name] = validation.ListProperty(f.Name, nil, need)
		default:
			props[f.Name] = validation.StringProperty(f.Name, f.Format, need)
		}
		if need {
			required = append(required, f.Name)
		}
	}
	return validation.NewSchema(def.Singular, props, required)
}

// Document renders form state as the JSON value checked against Schema.
// Empty values are absent, matching what Encode would send.
func Document(def *resource.Definition, form *FormState) map[string]interface{} {
	doc := make(map[string]interface{})

	for _, f := range def.Fields {
		switch f.Kind {
		case resource.KindSingleFile, resource.KindMultiFile:
			var names []string
			for _, file := range form.FileList(f.Name) {
				if file != nil {
					names = append(names, file.Name)
				}
			}
			if len(names) > 0 {
				doc[f.Name] = names
			}
		case resource.KindMultiSelect:
			if vals := selected(form.List(f.Name)); len(vals) > 0 {
				doc[f.Name] = vals
			}
		case resource.KindCommaList:
			if tokens := SplitCommaList(form.Get(f.Name)); len(tokens) > 0 {
				doc[f.Name] = tokens
			}
		default:
			raw := strings.TrimSpace(form.Get(f.Name))
			if raw == "" {
				continue
			}
			doc[f.Name] = typed(f.Kind, raw)
		}
	}
	return doc
}

// typed keeps unparseable input as text so the schema reports a type error.
func typed(kind resource.FieldKind, raw string) interface{} {
	switch kind {
	case resource.KindNumber:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return n
		}
	case resource.KindBoolean:
		if b, ok := parseBool(raw); ok {
			return b
		}
	}
	return raw
}

// Validate runs the advisory client-side checks before anything is sent.
func Validate(v *validation.Validator, def *resource.Definition, key resource.Key, form *FormState) error {
	return v.Validate(Document(def, form), Schema(def, key))
}
