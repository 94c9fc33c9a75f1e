package resource

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed entities.yaml
var defaultEntities []byte

type FieldKind string

const (
	KindText        FieldKind = "text"
	KindNumber      FieldKind = "number"
	KindBoolean     FieldKind = "boolean"
	KindSingleFile  FieldKind = "singleFile"
	KindMultiFile   FieldKind = "multiFile"
	KindMultiSelect FieldKind = "multiSelect"
	KindCommaList   FieldKind = "commaList"
)

const DefaultSeparator = ","

func (k FieldKind) Valid() bool {
	switch k {
	case KindText, KindNumber, KindBoolean, KindSingleFile, KindMultiFile, KindMultiSelect, KindCommaList:
		return true
	}
	return false
}

func (k FieldKind) IsFile() bool {
	return k == KindSingleFile || k == KindMultiFile
}

type FieldDescriptor struct {
	Name      string    `yaml:"name" json:"name"`
	Kind      FieldKind `yaml:"kind" json:"kind"`
	Required  bool      `yaml:"required" json:"required,omitempty"`
	Format    string    `yaml:"format" json:"format,omitempty"`
	Separator string    `yaml:"separator" json:"separator,omitempty"`
	Options   []string  `yaml:"options" json:"options,omitempty"`
}

// Sep is the multiSelect join separator.
func (f FieldDescriptor) Sep() string {
	if f.Separator == "" {
		return DefaultSeparator
	}
	return f.Separator
}

// StatusFilter matches records whose Field renders as Equals. Records
// without the field are judged by Missing.
type StatusFilter struct {
	Name    string `yaml:"name" json:"name"`
	Field   string `yaml:"field" json:"field"`
	Equals  string `yaml:"equals" json:"equals"`
	Missing string `yaml:"missing" json:"missing,omitempty"`
}

type Envelope struct {
	List string `yaml:"list"`
	Item string `yaml:"item"`
}

// Endpoints are paths under the API base with {id} and {parentId} placeholders.
type Endpoints struct {
	List   string `yaml:"list"`
	Get    string `yaml:"get"`
	Create string `yaml:"create"`
	Update string `yaml:"update"`
	Delete string `yaml:"delete"`
}

type Messages struct {
	Load   string `yaml:"load"`
	Create string `yaml:"create"`
	Update string `yaml:"update"`
	Delete string `yaml:"delete"`
}

type Definition struct {
	Name        string            `yaml:"name"`
	Singular    string            `yaml:"singular"`
	Parent      string            `yaml:"parent"`
	ParentField string            `yaml:"parentField"`
	IDField     string            `yaml:"idField"`
	Envelope    Envelope          `yaml:"envelope"`
	Endpoints   Endpoints         `yaml:"endpoints"`
	Fields      []FieldDescriptor `yaml:"fields"`
	Search      []string          `yaml:"search"`
	Statuses    []StatusFilter    `yaml:"statuses"`
	Messages    Messages          `yaml:"messages"`
}

func (d *Definition) Nested() bool { return d.Parent != "" }

func (d *Definition) Field(name string) (FieldDescriptor, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}

// Status resolves a status filter by name. Empty and "all" mean no filter.
func (d *Definition) Status(name string) (*StatusFilter, error) {
	if name == "" || name == StatusAll {
		return nil, nil
	}
	for i := range d.Statuses {
		if d.Statuses[i].Name == name {
			return &d.Statuses[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q for %s", ErrUnknownStatus, name, d.Name)
}

// Path expands an endpoint template for key.
func (d *Definition) Path(tmpl string, key Key) (string, error) {
	if tmpl == "" {
		return "", ErrUnsupported
	}
	if strings.Contains(tmpl, "{parentId}") {
		if key.ParentID == "" {
			return "", ErrParentRequired
		}
		tmpl = strings.ReplaceAll(tmpl, "{parentId}", url.PathEscape(key.ParentID))
	}
	if strings.Contains(tmpl, "{id}") {
		if key.ID == "" {
			return "", fmt.Errorf("%s: record id required", d.Name)
		}
		tmpl = strings.ReplaceAll(tmpl, "{id}", url.PathEscape(key.ID))
	}
	return tmpl, nil
}

func (d *Definition) normalize() {
	if d.IDField == "" {
		d.IDField = "_id"
	}
	if d.Singular == "" {
		d.Singular = strings.TrimSuffix(d.Name, "s")
	}
	if d.Envelope.List == "" {
		d.Envelope.List = d.Name
	}
	if d.Envelope.Item == "" {
		d.Envelope.Item = d.Singular
	}
	if d.Messages.Load == "" {
		d.Messages.Load = "Failed to load " + d.Name
	}
	if d.Messages.Create == "" {
		d.Messages.Create = "Failed to add " + d.Singular
	}
	if d.Messages.Update == "" {
		d.Messages.Update = "Failed to update " + d.Singular
	}
	if d.Messages.Delete == "" {
		d.Messages.Delete = "Failed to delete " + d.Singular
	}
}

func (d *Definition) validate() error {
	if d.Name == "" {
		return fmt.Errorf("entity name is required")
	}
	e := d.Endpoints
	if e.List == "" || e.Create == "" || e.Update == "" || e.Delete == "" {
		return fmt.Errorf("%s: list, create, update and delete endpoints are required", d.Name)
	}
	if d.Nested() {
		if d.ParentField == "" {
			return fmt.Errorf("%s: parentField is required for nested entities", d.Name)
		}
		if !strings.Contains(e.List, "{parentId}") {
			return fmt.Errorf("%s: list endpoint must be scoped by {parentId}", d.Name)
		}
	}

	seen := make(map[string]bool)
	for _, f := range d.Fields {
		if f.Name == "" {
			return fmt.Errorf("%s: field name is required", d.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("%s: duplicate field %q", d.Name, f.Name)
		}
		seen[f.Name] = true
		if !f.Kind.Valid() {
			return fmt.Errorf("%s: field %q has unknown kind %q", d.Name, f.Name, f.Kind)
		}
	}
	for _, s := range d.Search {
		if !seen[s] {
			return fmt.Errorf("%s: search field %q is not declared", d.Name, s)
		}
	}
	for _, st := range d.Statuses {
		if st.Name == "" || st.Name == StatusAll || st.Field == "" {
			return fmt.Errorf("%s: status filters need a name other than %q and a field", d.Name, StatusAll)
		}
	}
	return nil
}

// Registry is the set of entity definitions the console serves.
type Registry struct {
	defs  map[string]*Definition
	order []string
}

type registryFile struct {
	Entities []*Definition `yaml:"entities"`
}

func ParseRegistry(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing entity definitions: %w", err)
	}
	if len(file.Entities) == 0 {
		return nil, fmt.Errorf("no entity definitions")
	}

	r := &Registry{defs: make(map[string]*Definition)}
	for _, d := range file.Entities {
		d.normalize()
		if err := d.validate(); err != nil {
			return nil, fmt.Errorf("invalid entity definition: %w", err)
		}
		if _, dup := r.defs[d.Name]; dup {
			return nil, fmt.Errorf("duplicate entity %q", d.Name)
		}
		r.defs[d.Name] = d
		r.order = append(r.order, d.Name)
	}

	for _, name := range r.order {
		d := r.defs[name]
		if !d.Nested() {
			continue
		}
		parent, ok := r.defs[d.Parent]
		if !ok {
			return nil, fmt.Errorf("%s: unknown parent %q", d.Name, d.Parent)
		}
		if parent.Nested() {
			return nil, fmt.Errorf("%s: parent %q is itself nested", d.Name, d.Parent)
		}
	}
	return r, nil
}

// LoadRegistry reads definitions from path, or the built-in table when path is empty.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return ParseRegistry(defaultEntities)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading entity definitions: %w", err)
	}
	return ParseRegistry(data)
}

func (r *Registry) Get(name string) (*Definition, error) {
	d, ok := r.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, name)
	}
	return d, nil
}

// Child resolves name as a sub-entity of parent.
func (r *Registry) Child(parent, name string) (*Definition, error) {
	d, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	if d.Parent != parent {
		return nil, fmt.Errorf("%w: %q under %q", ErrUnknownEntity, name, parent)
	}
	return d, nil
}

func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Children(parent string) []*Definition {
	var out []*Definition
	for _, name := range r.order {
		if d := r.defs[name]; d.Parent == parent {
			out = append(out, d)
		}
	}
	return out
}
