package console

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopneo/console/internal/core/modal"
	"github.com/shopneo/console/internal/core/mutation"
	"github.com/shopneo/console/internal/core/resource"
	"github.com/shopneo/console/internal/core/session"
	"github.com/shopneo/console/internal/transport"
)

type fixture struct {
	backend *backend
	service *session.Service
	manager *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := newBackend()
	base := b.start(t)

	sess := session.New()
	client, err := transport.NewClient(base, 2*time.Second, sess)
	require.NoError(t, err)
	svc := session.NewService(sess, session.NewMemoryStore(), client, zerolog.Nop())
	client.SetUnauthorizedHandler(svc.Invalidate)

	reg, err := resource.LoadRegistry("")
	require.NoError(t, err)

	return &fixture{backend: b, service: svc, manager: NewManager(reg, client, 10, zerolog.Nop())}
}

func ids(items []resource.Record) []string {
	out := make([]string, len(items))
	for i, r := range items {
		out[i] = r.ID
	}
	return out
}

func TestLoginThenLoadSendsBearer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.service.Login(ctx, &session.LoginRequest{Email: "a@b.com", Password: "x"}))
	assert.Equal(t, session.StatusAuthenticated, f.service.State().Status)

	c, err := f.manager.Console("customers")
	require.NoError(t, err)
	_, err = c.Refresh(ctx)
	require.NoError(t, err)

	assert.Equal(t, "Bearer t1", f.backend.lastAuth())
}

func TestView_SearchStatusAndPaging(t *testing.T) {
	f := newFixture(t)
	c, err := f.manager.Console("customers")
	require.NoError(t, err)

	v, err := c.View(context.Background(), resource.Query{Search: "JANE"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, ids(v.Items))
	assert.Equal(t, 10, v.PageSize)

	v, err = c.View(context.Background(), resource.Query{Status: "inactive"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c2"}, ids(v.Items))

	v, err = c.View(context.Background(), resource.Query{Status: "active", Page: 2})
	require.NoError(t, err)
	assert.Empty(t, v.Items)

	assert.Equal(t, 1, f.backend.count("GET /customer/getcustomer"), "views reuse the loaded collection")
}

func TestSave_CreateRefreshes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, _ := f.manager.Console("customers")
	_, err := c.Refresh(ctx)
	require.NoError(t, err)

	form := mutation.NewFormState()
	form.Set("slug", "new")
	form.Set("name", "New Shop")
	form.Set("metaKeywords", "red, blue,  blue")

	out := c.Save(ctx, "", form)
	require.True(t, out.OK(), out.Reason)

	v, err := c.View(ctx, resource.Query{Search: "new shop"})
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	assert.Equal(t, []interface{}{"red", "blue", "blue"}, v.Items[0].Fields["metaKeywords"])

	assert.Equal(t, 2, f.backend.count("GET /customer/getcustomer"))
	notices := c.Notices()
	require.Len(t, notices, 1)
	assert.Equal(t, mutation.StatusSuccess, notices[0].Status)
}

func TestDelete_ServerErrorLeavesCollection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, _ := f.manager.Console("customers")
	_, err := c.Refresh(ctx)
	require.NoError(t, err)
	f.backend.failDelete = 1

	out := c.Delete(ctx, "c1")

	assert.Equal(t, mutation.StatusFailure, out.Status)
	assert.Equal(t, "Failed to delete customer", out.Reason)
	v, _ := c.View(ctx, resource.Query{})
	assert.Equal(t, []string{"c1", "c2"}, ids(v.Items))
	assert.Len(t, c.Notices(), 1)
	assert.Equal(t, 1, f.backend.count("GET /customer/getcustomer"), "no refresh after a failed delete")
}

func TestDelete_TwiceYieldsFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, _ := f.manager.Console("customers")
	_, err := c.Refresh(ctx)
	require.NoError(t, err)

	require.True(t, c.Delete(ctx, "c2").OK())
	v, _ := c.View(ctx, resource.Query{})
	assert.Equal(t, []string{"c1"}, ids(v.Items))

	out := c.Delete(ctx, "c2")
	assert.Equal(t, mutation.StatusFailure, out.Status)
	assert.Equal(t, "Customer not found", out.Reason)
	v, _ = c.View(ctx, resource.Query{})
	assert.Equal(t, []string{"c1"}, ids(v.Items))
}

func TestGet_PrefillsForm(t *testing.T) {
	f := newFixture(t)
	c, _ := f.manager.Console("customers")

	e, err := c.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", e.Form.Get("name"))

	_, err = c.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, resource.ErrNotFound)
}

func TestNestedModalEdit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	blogs, err := f.manager.Child("customers", "c1", "blogs")
	require.NoError(t, err)

	require.NoError(t, blogs.Edit(ctx, "b1"))
	assert.Equal(t, modal.StateOpen, blogs.Modal().State())
	require.NoError(t, blogs.Modal().Set("heading", "Updated"))

	out, err := blogs.SubmitEdit(ctx)
	require.NoError(t, err)
	require.True(t, out.OK(), out.Reason)

	assert.Equal(t, modal.StateClosed, blogs.Modal().State())
	v, err := blogs.View(ctx, resource.Query{})
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	assert.Equal(t, "Updated", v.Items[0].String("heading"))
	assert.Equal(t, "c1", v.Items[0].ParentID)
	assert.Equal(t, 2, f.backend.count("GET /blogs/allBlogs/c1"), "a successful edit reloads the list")
}

func TestNestedModalEdit_FailureStaysOpen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	blogs, _ := f.manager.Child("customers", "c1", "blogs")

	require.NoError(t, blogs.Edit(ctx, "b1"))
	require.NoError(t, blogs.Modal().Set("heading", ""))

	out, err := blogs.SubmitEdit(ctx)
	require.NoError(t, err)
	assert.Equal(t, mutation.StatusFailure, out.Status)

	s := blogs.Modal().Snapshot()
	assert.Equal(t, modal.StateOpen, s.State)
	assert.Equal(t, "is required", s.Fields["heading"])

	blogs.CloseEdit()
	assert.Equal(t, modal.StateClosed, blogs.Modal().State())
}

func TestUnauthorizedInvalidatesSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.service.Login(ctx, &session.LoginRequest{Email: "a@b.com", Password: "x"}))

	c, err := f.manager.Console("customers")
	require.NoError(t, err)
	_, err = c.Refresh(ctx)
	require.NoError(t, err)

	f.backend.mu.Lock()
	f.backend.revoked = true
	f.backend.mu.Unlock()

	_, err = c.Refresh(ctx)
	require.Error(t, err)
	assert.True(t, transport.IsUnauthorized(err))
	assert.False(t, f.service.IsAuthenticated(), "a 401 forces the session anonymous")
	assert.True(t, c.State().Stale)
	assert.Equal(t, "Token expired", c.State().LastError)
}

func TestManager(t *testing.T) {
	f := newFixture(t)

	a, err := f.manager.Console("sellers")
	require.NoError(t, err)
	b, err := f.manager.Console("sellers")
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = f.manager.Console("blogs")
	assert.ErrorIs(t, err, resource.ErrParentRequired)

	_, err = f.manager.Child("customers", "", "blogs")
	assert.ErrorIs(t, err, resource.ErrParentRequired)

	_, err = f.manager.Child("sellers", "s1", "blogs")
	assert.ErrorIs(t, err, resource.ErrUnknownEntity)

	_, err = f.manager.Console("orders")
	assert.ErrorIs(t, err, resource.ErrUnknownEntity)

	x, _ := f.manager.Child("customers", "c1", "blogs")
	y, _ := f.manager.Child("customers", "c2", "blogs")
	assert.NotSame(t, x, y)

	f.manager.Release("sellers", "")
	c, _ := f.manager.Console("sellers")
	assert.NotSame(t, a, c)

	f.manager.Reset()
	_, err = x.Refresh(context.Background())
	assert.ErrorIs(t, err, resource.ErrUnmounted)
}

func TestGet_LoadsListBackedEntityFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, err := f.manager.Child("customers", "c1", "blogs")
	require.NoError(t, err)

	e, err := c.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "Hello", e.Record.Fields["heading"])
	assert.Equal(t, "Hello", e.Form.Values["heading"])
	assert.Equal(t, 1, f.backend.count("GET /blogs/allBlogs/c1"))

	_, err = c.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 1, f.backend.count("GET /blogs/allBlogs/c1"), "later reads reuse the loaded list")

	_, err = c.Get(ctx, "missing")
	assert.ErrorIs(t, err, resource.ErrNotFound)
}
