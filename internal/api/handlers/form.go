package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shopneo/console/internal/core/mutation"
	"github.com/shopneo/console/internal/core/resource"
	"github.com/shopneo/console/internal/transport"
)

// readForm collects the posted fields of def from a JSON, multipart or
// urlencoded body. Names def does not declare are ignored.
func readForm(c *gin.Context, def *resource.Definition) (*mutation.FormState, error) {
	form := mutation.NewFormState()
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return form, nil
	}

	switch c.ContentType() {
	case gin.MIMEJSON:
		return form, readJSONForm(c.Request.Body, def, form)
	case gin.MIMEMultipartPOSTForm:
		mf, err := c.MultipartForm()
		if err != nil {
			return nil, fmt.Errorf("parsing multipart form: %w", err)
		}
		readValues(mf.Value, def, form)
		return form, readFiles(mf.File, def, form)
	default:
		if err := c.Request.ParseForm(); err != nil {
			return nil, fmt.Errorf("parsing form: %w", err)
		}
		readValues(c.Request.PostForm, def, form)
		return form, nil
	}
}

func readJSONForm(body io.Reader, def *resource.Definition, form *mutation.FormState) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("reading body: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("decoding json form: %w", err)
	}

	for name, v := range raw {
		field, ok := def.Field(name)
		if !ok || field.Kind.IsFile() {
			continue
		}
		switch val := v.(type) {
		case nil:
			setValue(form, field, "")
		case []interface{}:
			list := make([]string, 0, len(val))
			for _, item := range val {
				list = append(list, resource.ValueString(item))
			}
			setList(form, field, list)
		default:
			setValue(form, field, resource.ValueString(val))
		}
	}
	return nil
}

func readValues(values map[string][]string, def *resource.Definition, form *mutation.FormState) {
	for name, vals := range values {
		field, ok := def.Field(name)
		if !ok || field.Kind.IsFile() || len(vals) == 0 {
			continue
		}
		if len(vals) > 1 {
			setList(form, field, vals)
			continue
		}
		setValue(form, field, vals[0])
	}
}

func readFiles(files map[string][]*multipart.FileHeader, def *resource.Definition, form *mutation.FormState) error {
	for name, headers := range files {
		field, ok := def.Field(name)
		if !ok || !field.Kind.IsFile() {
			continue
		}
		for _, fh := range headers {
			file, err := openUpload(fh)
			if err != nil {
				return err
			}
			form.AddFile(name, file)
		}
	}
	return nil
}

func openUpload(fh *multipart.FileHeader) (*transport.File, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("opening upload %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading upload %s: %w", fh.Filename, err)
	}
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return &transport.File{Name: fh.Filename, ContentType: contentType, Data: data}, nil
}

// setValue stores a single posted value. A multi-select given as one string
// is split on the field's separator.
func setValue(form *mutation.FormState, field resource.FieldDescriptor, value string) {
	if field.Kind != resource.KindMultiSelect {
		form.Set(field.Name, value)
		return
	}
	var list []string
	for _, part := range strings.Split(value, field.Sep()) {
		if part = strings.TrimSpace(part); part != "" {
			list = append(list, part)
		}
	}
	form.SetList(field.Name, list)
}

func setList(form *mutation.FormState, field resource.FieldDescriptor, values []string) {
	if field.Kind == resource.KindMultiSelect {
		form.SetList(field.Name, values)
		return
	}
	form.Set(field.Name, strings.Join(values, ", "))
}

// overlay copies what patch carries onto base. Uploads replace the queued
// files of the same field.
func overlay(base, patch *mutation.FormState) *mutation.FormState {
	out := base.Clone()
	for k, v := range patch.Values {
		out.Set(k, v)
	}
	for k, v := range patch.Lists {
		out.SetList(k, v)
	}
	for k, files := range patch.Files {
		out.ClearFiles(k)
		for _, f := range files {
			out.AddFile(k, f)
		}
	}
	return out
}
