package transport

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
)

// File is one file part of a multipart payload.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Part is a named text or file entry. Exactly one of Value or File is used.
type Part struct {
	Name  string
	Value string
	File  *File
}

// Payload is an ordered list of parts. Names may repeat (gallery uploads).
type Payload struct {
	parts []Part
}

func NewPayload() *Payload {
	return &Payload{}
}

func (p *Payload) AddText(name, value string) {
	p.parts = append(p.parts, Part{Name: name, Value: value})
}

func (p *Payload) AddFile(name string, f *File) {
	p.parts = append(p.parts, Part{Name: name, File: f})
}

func (p *Payload) Parts() []Part {
	out := make([]Part, len(p.parts))
	copy(out, p.parts)
	return out
}

func (p *Payload) HasFiles() bool {
	for _, part := range p.parts {
		if part.File != nil {
			return true
		}
	}
	return false
}

// Text returns the first text value for name.
func (p *Payload) Text(name string) (string, bool) {
	for _, part := range p.parts {
		if part.Name == name && part.File == nil {
			return part.Value, true
		}
	}
	return "", false
}

// Files returns every file attached under name, in order.
func (p *Payload) Files(name string) []*File {
	var files []*File
	for _, part := range p.parts {
		if part.Name == name && part.File != nil {
			files = append(files, part.File)
		}
	}
	return files
}

// Has reports whether any part is named name.
func (p *Payload) Has(name string) bool {
	for _, part := range p.parts {
		if part.Name == name {
			return true
		}
	}
	return false
}

// Fields returns the text parts as a map, the shape used for JSON encoding.
func (p *Payload) Fields() map[string]string {
	out := make(map[string]string)
	for _, part := range p.parts {
		if part.File == nil {
			out[part.Name] = part.Value
		}
	}
	return out
}

// writeMultipart encodes the payload and returns the body and its content type.
func (p *Payload) writeMultipart() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, part := range p.parts {
		if part.File == nil {
			if err := w.WriteField(part.Name, part.Value); err != nil {
				return nil, "", fmt.Errorf("writing field %s: %w", part.Name, err)
			}
			continue
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, part.Name, part.File.Name))
		contentType := part.File.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)

		fw, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("creating file part %s: %w", part.Name, err)
		}
		if _, err := fw.Write(part.File.Data); err != nil {
			return nil, "", fmt.Errorf("writing file part %s: %w", part.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
