package mutation

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopneo/console/internal/core/resource"
	"github.com/shopneo/console/internal/transport"
)

// SplitCommaList splits raw on commas, trims each token and drops empty ones.
// Duplicates are kept.
func SplitCommaList(raw string) []string {
	tokens := []string{}
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

func selected(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Encode turns form state into the multipart payload for key. Empty values
// are left out. Nested records also carry their parent back-reference.
func Encode(def *resource.Definition, key resource.Key, form *FormState) (*transport.Payload, error) {
	p := transport.NewPayload()

	for _, f := range def.Fields {
		switch f.Kind {
		case resource.KindSingleFile:
			if files := form.FileList(f.Name); len(files) > 0 && files[0] != nil {
				p.AddFile(f.Name, files[0])
			}
		case resource.KindMultiFile:
			for _, file := range form.FileList(f.Name) {
				if file != nil {
					p.AddFile(f.Name, file)
				}
			}
		case resource.KindMultiSelect:
			if vals := selected(form.List(f.Name)); len(vals) > 0 {
				p.AddText(f.Name, strings.Join(vals, f.Sep()))
			}
		case resource.KindCommaList:
			tokens := SplitCommaList(form.Get(f.Name))
			if len(tokens) == 0 {
				continue
			}
			data, err := json.Marshal(tokens)
			if err != nil {
				return nil, err
			}
			p.AddText(f.Name, string(data))
		case resource.KindBoolean:
			// false is a value, not an absence
			if v, ok := parseBool(form.Get(f.Name)); ok {
				p.AddText(f.Name, strconv.FormatBool(v))
			}
		default:
			if v := form.Get(f.Name); strings.TrimSpace(v) != "" {
				p.AddText(f.Name, v)
			}
		}
	}

	if def.Nested() && key.ParentID != "" && !p.Has(def.ParentField) {
		p.AddText(def.ParentField, key.ParentID)
	}
	return p, nil
}

// Decode is the inverse of Encode for every editable value. File fields come
// back empty since a stored file cannot be re-uploaded.
func Decode(def *resource.Definition, rec resource.Record) *FormState {
	form := NewFormState()

	for _, f := range def.Fields {
		v, ok := rec.Fields[f.Name]
		if !ok || v == nil {
			continue
		}
		switch f.Kind {
		case resource.KindSingleFile, resource.KindMultiFile:
			continue
		case resource.KindMultiSelect:
			form.SetList(f.Name, decodeList(v, f.Sep()))
		case resource.KindCommaList:
			form.Set(f.Name, strings.Join(decodeList(v, ","), ", "))
		case resource.KindNumber:
			form.Set(f.Name, formatNumber(v))
		case resource.KindBoolean:
			if b, ok := v.(bool); ok {
				form.Set(f.Name, strconv.FormatBool(b))
			} else if b, ok := parseBool(resource.ValueString(v)); ok {
				form.Set(f.Name, strconv.FormatBool(b))
			}
		default:
			form.Set(f.Name, resource.ValueString(v))
		}
	}
	return form
}

// decodeList accepts a JSON array, a JSON array encoded as text, or a
// separator-joined string.
func decodeList(v interface{}, sep string) []string {
	switch val := v.(type) {
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s := resource.ValueString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return selected(val)
	}

	s := strings.TrimSpace(resource.ValueString(v))
	if strings.HasPrefix(s, "[") {
		var arr []string
		if err := json.Unmarshal([]byte(s), &arr); err == nil {
			return selected(arr)
		}
	}
	out := []string{}
	for _, t := range strings.Split(s, sep) {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func formatNumber(v interface{}) string {
	s := strings.TrimSpace(resource.ValueString(v))
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return s
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "on", "1", "yes":
		return true, true
	case "false", "off", "0", "no":
		return false, true
	}
	return false, false
}
