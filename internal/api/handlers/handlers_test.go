package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopneo/console/internal/core/modal"
	"github.com/shopneo/console/internal/core/mutation"
	"github.com/shopneo/console/internal/core/resource"
	"github.com/shopneo/console/internal/transport"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Helper to create test context around a request
func createTestContext(req *http.Request) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return c, w
}

func definition(t *testing.T, name string) *resource.Definition {
	t.Helper()
	reg, err := resource.LoadRegistry("")
	require.NoError(t, err)
	def, err := reg.Get(name)
	require.NoError(t, err)
	return def
}

func TestSafeReturnTo(t *testing.T) {
	tests := []struct {
		target   string
		expected string
	}{
		{"", defaultLanding},
		{"/app/customers?page=2", "/app/customers?page=2"},
		{"//evil.example/app", defaultLanding},
		{"/\\evil.example", defaultLanding},
		{"https://evil.example", defaultLanding},
		{"app/customers", defaultLanding},
	}

	for _, tt := range tests {
		if got := safeReturnTo(tt.target); got != tt.expected {
			t.Errorf("safeReturnTo(%q) = %q, expected %q", tt.target, got, tt.expected)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"unknown entity", fmt.Errorf("%w: %q", resource.ErrUnknownEntity, "orders"), http.StatusNotFound},
		{"not found", resource.ErrNotFound, http.StatusNotFound},
		{"parent required", resource.ErrParentRequired, http.StatusBadRequest},
		{"unknown status", resource.ErrUnknownStatus, http.StatusBadRequest},
		{"unsupported", resource.ErrUnsupported, http.StatusMethodNotAllowed},
		{"modal closed", modal.ErrNotOpen, http.StatusConflict},
		{"modal busy", modal.ErrSubmitting, http.StatusConflict},
		{"upstream 400", &transport.HTTPError{Status: http.StatusBadRequest}, http.StatusBadRequest},
		{"upstream 401", &transport.HTTPError{Status: http.StatusUnauthorized}, http.StatusUnauthorized},
		{"upstream 503", &transport.HTTPError{Status: http.StatusServiceUnavailable}, http.StatusBadGateway},
		{"network", &transport.NetworkError{Err: errors.New("refused")}, http.StatusBadGateway},
		{"decode", &transport.DecodeError{Err: errors.New("bad json")}, http.StatusBadGateway},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, statusFor(tt.err))
		})
	}
}

func TestReadForm_JSON(t *testing.T) {
	def := definition(t, "sellers")
	body := `{"name":"Shop","category":["Books","Beauty"],"rating":4.5,"verified":false,"seoKeywords":"a, b","unknown":"x","logo":"ignored"}`
	req := httptest.NewRequest(http.MethodPut, "/app/sellers/s1", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c, _ := createTestContext(req)

	form, err := readForm(c, def)
	require.NoError(t, err)

	assert.Equal(t, "Shop", form.Get("name"))
	assert.Equal(t, []string{"Books", "Beauty"}, form.List("category"))
	assert.Equal(t, "4.5", form.Get("rating"))
	assert.Equal(t, "false", form.Get("verified"))
	assert.Equal(t, "a, b", form.Get("seoKeywords"))
	assert.False(t, form.Has("unknown"))
	assert.False(t, form.Has("logo"))
}

func TestReadForm_JSONMultiSelectString(t *testing.T) {
	def := definition(t, "sellers")
	req := httptest.NewRequest(http.MethodPost, "/app/sellers", strings.NewReader(`{"category":"Books, Sports"}`))
	req.Header.Set("Content-Type", "application/json")
	c, _ := createTestContext(req)

	form, err := readForm(c, def)
	require.NoError(t, err)
	assert.Equal(t, []string{"Books", "Sports"}, form.List("category"))
}

func TestReadForm_Multipart(t *testing.T) {
	def := definition(t, "customers")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("name", "Jane")
	_ = mw.WriteField("metaKeywords", "red, blue")
	fw, err := mw.CreateFormFile("galleryImages", "g1.png")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("one"))
	fw, err = mw.CreateFormFile("galleryImages", "g2.png")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("two"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/app/customers", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c, _ := createTestContext(req)

	form, err := readForm(c, def)
	require.NoError(t, err)

	assert.Equal(t, "Jane", form.Get("name"))
	assert.Equal(t, "red, blue", form.Get("metaKeywords"))
	files := form.FileList("galleryImages")
	require.Len(t, files, 2)
	assert.Equal(t, "g1.png", files[0].Name)
	assert.Equal(t, []byte("two"), files[1].Data)
	assert.NotEmpty(t, files[0].ContentType)
}

func TestReadForm_URLEncoded(t *testing.T) {
	def := definition(t, "sellers")
	values := url.Values{"name": {"Shop"}, "category": {"Books", "Fashion"}, "verified": {"on"}}
	req := httptest.NewRequest(http.MethodPost, "/app/sellers", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c, _ := createTestContext(req)

	form, err := readForm(c, def)
	require.NoError(t, err)

	assert.Equal(t, "Shop", form.Get("name"))
	assert.Equal(t, []string{"Books", "Fashion"}, form.List("category"))
	assert.Equal(t, "on", form.Get("verified"))
}

func TestReadForm_EmptyBody(t *testing.T) {
	c, _ := createTestContext(httptest.NewRequest(http.MethodPut, "/app/customers/c1", nil))

	form, err := readForm(c, definition(t, "customers"))
	require.NoError(t, err)
	assert.Empty(t, form.Values)
}

func TestReadForm_BadJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/app/customers", strings.NewReader(`{"name":`))
	req.Header.Set("Content-Type", "application/json")
	c, _ := createTestContext(req)

	_, err := readForm(c, definition(t, "customers"))
	assert.Error(t, err)
}

func TestOverlay(t *testing.T) {
	base := mutation.NewFormState()
	base.Set("slug", "jane")
	base.Set("name", "Jane")
	base.SetList("category", []string{"Books"})
	base.AddFile("bannerImage", &transport.File{Name: "old.png"})

	patch := mutation.NewFormState()
	patch.Set("name", "Jane Doe")
	patch.AddFile("bannerImage", &transport.File{Name: "new.png"})

	out := overlay(base, patch)

	assert.Equal(t, "jane", out.Get("slug"))
	assert.Equal(t, "Jane Doe", out.Get("name"))
	assert.Equal(t, []string{"Books"}, out.List("category"))
	require.Len(t, out.FileList("bannerImage"), 1)
	assert.Equal(t, "new.png", out.FileList("bannerImage")[0].Name)
	assert.Equal(t, "Jane", base.Get("name"), "base must not change")
}

func TestWriteOutcome(t *testing.T) {
	tests := []struct {
		name     string
		outcome  mutation.Outcome
		expected int
	}{
		{"created", mutation.Outcome{Status: mutation.StatusSuccess, Op: mutation.OpCreate}, http.StatusCreated},
		{"invalid", mutation.Outcome{Status: mutation.StatusFailure, Reason: "validation failed", Fields: map[string]string{"slug": "is required"}}, http.StatusUnprocessableEntity},
		{"upstream", mutation.Outcome{Status: mutation.StatusFailure, Reason: "Seller not found", Err: &transport.HTTPError{Status: http.StatusNotFound}}, http.StatusNotFound},
		{"server error", mutation.Outcome{Status: mutation.StatusFailure, Reason: "Failed to add seller", Err: &transport.HTTPError{Status: http.StatusInternalServerError}}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := createTestContext(httptest.NewRequest(http.MethodPost, "/", nil))
			writeOutcome(c, tt.outcome, http.StatusCreated)
			assert.Equal(t, tt.expected, w.Code)
		})
	}
}

func TestWriteError_UpstreamMessage(t *testing.T) {
	c, w := createTestContext(httptest.NewRequest(http.MethodGet, "/", nil))
	writeError(c, &transport.HTTPError{Status: http.StatusBadRequest, Message: "slug already taken"}, "Failed to load customers")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "slug already taken")

	c, w = createTestContext(httptest.NewRequest(http.MethodGet, "/", nil))
	writeError(c, &transport.NetworkError{Err: errors.New("refused")}, "Failed to load customers")

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to load customers")
}

func TestSummarize(t *testing.T) {
	reg, err := resource.LoadRegistry("")
	require.NoError(t, err)

	got := summarize(reg)
	require.Len(t, got, 2)
	assert.Equal(t, entitySummary{Name: "customers", Singular: "customer", Children: []string{"blogs", "products"}}, got[0])
	assert.Equal(t, "sellers", got[1].Name)
	assert.Empty(t, got[1].Children)
}

func TestConsoleHandler_NoWorkspace(t *testing.T) {
	c, w := createTestContext(httptest.NewRequest(http.MethodGet, "/app/customers", nil))
	c.Params = gin.Params{{Key: "entity", Value: "customers"}}

	NewConsoleHandler().List(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
