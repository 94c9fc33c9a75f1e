package mutation

import (
	"github.com/shopneo/console/internal/transport"
)

// FormState is the editable state of one record. Scalars and raw comma lists
// live in Values, multi-select choices in Lists, uploads in Files.
type FormState struct {
	Values map[string]string            `json:"values"`
	Lists  map[string][]string          `json:"lists,omitempty"`
	Files  map[string][]*transport.File `json:"-"`
}

func NewFormState() *FormState {
	return &FormState{
		Values: make(map[string]string),
		Lists:  make(map[string][]string),
		Files:  make(map[string][]*transport.File),
	}
}

func (f *FormState) Set(name, value string) {
	f.Values[name] = value
}

func (f *FormState) Get(name string) string {
	return f.Values[name]
}

func (f *FormState) Has(name string) bool {
	_, ok := f.Values[name]
	return ok
}

func (f *FormState) SetList(name string, values []string) {
	f.Lists[name] = append([]string(nil), values...)
}

func (f *FormState) List(name string) []string {
	return f.Lists[name]
}

func (f *FormState) AddFile(name string, file *transport.File) {
	f.Files[name] = append(f.Files[name], file)
}

// ClearFiles drops any upload queued for name.
func (f *FormState) ClearFiles(name string) {
	delete(f.Files, name)
}

func (f *FormState) FileList(name string) []*transport.File {
	return f.Files[name]
}

func (f *FormState) Clone() *FormState {
	out := NewFormState()
	for k, v := range f.Values {
		out.Values[k] = v
	}
	for k, v := range f.Lists {
		out.Lists[k] = append([]string(nil), v...)
	}
	for k, v := range f.Files {
		out.Files[k] = append([]*transport.File(nil), v...)
	}
	return out
}
