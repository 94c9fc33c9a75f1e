package resource

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrUnknownEntity  = errors.New("unknown entity")
	ErrUnknownStatus  = errors.New("unknown status filter")
	ErrParentRequired = errors.New("parent id required")
	ErrUnsupported    = errors.New("operation not supported for entity")
	ErrSuperseded     = errors.New("load superseded by a newer request")
	ErrUnmounted      = errors.New("collection is no longer mounted")
)

// Key addresses a record. Top-level records leave ParentID empty; sub-records
// are only ever addressed together with their parent.
type Key struct {
	ParentID string `json:"parentId,omitempty"`
	ID       string `json:"id,omitempty"`
}

func (k Key) IsNew() bool { return k.ID == "" }

func (k Key) String() string {
	if k.ParentID == "" {
		return k.ID
	}
	return k.ParentID + "/" + k.ID
}

// Record is a server record the console treats as opaque beyond its identity.
type Record struct {
	ID       string                 `json:"id"`
	ParentID string                 `json:"parentId,omitempty"`
	Fields   map[string]interface{} `json:"fields"`
}

func (r Record) Key() Key {
	return Key{ParentID: r.ParentID, ID: r.ID}
}

// String renders a field for display and search. Lists are joined with ", ".
func (r Record) String(field string) string {
	return ValueString(r.Fields[field])
}

func (r Record) clone() Record {
	fields := make(map[string]interface{}, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	return Record{ID: r.ID, ParentID: r.ParentID, Fields: fields}
}

// Page is one loaded collection, in server order.
type Page struct {
	Items      []Record `json:"items"`
	TotalCount int      `json:"totalCount"`
}

// ValueString renders a decoded JSON value as text.
func ValueString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case bool:
		return strconv.FormatBool(val)
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, ValueString(item))
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(val, ", ")
	default:
		return fmt.Sprint(val)
	}
}

// FetchError reports a failed list or get. The previous items stay in place.
type FetchError struct {
	Entity string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.Entity, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
