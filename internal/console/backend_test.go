package console

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// backend is a small in-memory stand-in for the marketplace API.
type backend struct {
	mu         sync.Mutex
	customers  []map[string]interface{}
	blogs      map[string][]map[string]interface{}
	nextID     int
	failDelete int
	revoked    bool
	auths      []string
	requests   []string
}

func newBackend() *backend {
	return &backend{
		customers: []map[string]interface{}{
			{"_id": "c1", "name": "Jane Doe", "email": "jane@shop.io", "businessName": "Jane's"},
			{"_id": "c2", "name": "Omar", "email": "omar@shop.io", "isActive": false},
		},
		blogs: map[string][]map[string]interface{}{
			"c1": {{"_id": "b1", "heading": "Hello", "description": "first", "customerId": "c1"}},
		},
	}
}

func (b *backend) start(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	return srv.URL + "/api/v1"
}

func (b *backend) write(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (b *backend) form(r *http.Request) map[string]interface{} {
	out := make(map[string]interface{})
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		return out
	}
	for k, v := range r.MultipartForm.Value {
		var arr []interface{}
		if err := json.Unmarshal([]byte(v[0]), &arr); err == nil {
			out[k] = arr
			continue
		}
		out[k] = v[0]
	}
	return out
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/api/v1")
	b.auths = append(b.auths, r.Header.Get("Authorization"))
	b.requests = append(b.requests, r.Method+" "+path)
	parts := strings.Split(strings.Trim(path, "/"), "/")

	if b.revoked && path != "/admin/login" {
		b.write(w, http.StatusUnauthorized, map[string]string{"message": "Token expired"})
		return
	}

	switch {
	case r.Method == http.MethodPost && path == "/admin/login":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "x" {
			b.write(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
			return
		}
		b.write(w, http.StatusOK, map[string]string{"token": "t1"})

	case r.Method == http.MethodGet && path == "/customer/getcustomer":
		b.write(w, http.StatusOK, map[string]interface{}{"customers": b.customers})

	case r.Method == http.MethodGet && len(parts) == 3 && parts[1] == "getcustomer":
		for _, c := range b.customers {
			if c["_id"] == parts[2] {
				b.write(w, http.StatusOK, map[string]interface{}{"customer": c})
				return
			}
		}
		b.write(w, http.StatusNotFound, map[string]string{"message": "Customer not found"})

	case r.Method == http.MethodPost && path == "/customer/addcustomer":
		b.nextID++
		c := b.form(r)
		c["_id"] = fmt.Sprintf("n%d", b.nextID)
		b.customers = append(b.customers, c)
		b.write(w, http.StatusCreated, map[string]interface{}{"customer": c})

	case r.Method == http.MethodPut && len(parts) == 3 && parts[1] == "updatecustomer":
		for i, c := range b.customers {
			if c["_id"] == parts[2] {
				upd := b.form(r)
				upd["_id"] = parts[2]
				b.customers[i] = upd
				b.write(w, http.StatusOK, map[string]interface{}{"customer": upd})
				return
			}
		}
		b.write(w, http.StatusNotFound, map[string]string{"message": "Customer not found"})

	case r.Method == http.MethodDelete && len(parts) == 3 && parts[1] == "deletecustomer":
		if b.failDelete > 0 {
			b.failDelete--
			b.write(w, http.StatusInternalServerError, map[string]string{})
			return
		}
		for i, c := range b.customers {
			if c["_id"] == parts[2] {
				b.customers = append(b.customers[:i], b.customers[i+1:]...)
				b.write(w, http.StatusOK, map[string]bool{"ok": true})
				return
			}
		}
		b.write(w, http.StatusNotFound, map[string]string{"message": "Customer not found"})

	case r.Method == http.MethodGet && len(parts) == 3 && parts[1] == "allBlogs":
		b.write(w, http.StatusOK, map[string]interface{}{"blogs": b.blogs[parts[2]]})

	case r.Method == http.MethodPut && len(parts) == 3 && parts[1] == "updateBlog":
		upd := b.form(r)
		parent, _ := upd["customerId"].(string)
		for i, bl := range b.blogs[parent] {
			if bl["_id"] == parts[2] {
				upd["_id"] = parts[2]
				b.blogs[parent][i] = upd
				b.write(w, http.StatusOK, map[string]interface{}{"blog": upd})
				return
			}
		}
		b.write(w, http.StatusNotFound, map[string]string{"message": "Blog not found"})

	default:
		b.write(w, http.StatusNotFound, map[string]string{"message": "no route " + path})
	}
}

func (b *backend) lastAuth() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.auths) == 0 {
		return ""
	}
	return b.auths[len(b.auths)-1]
}

func (b *backend) count(prefix string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, r := range b.requests {
		if strings.HasPrefix(r, prefix) {
			n++
		}
	}
	return n
}
