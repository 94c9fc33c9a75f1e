package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/shopneo/console/internal/api/middleware"
	"github.com/shopneo/console/internal/console"
	"github.com/shopneo/console/internal/core/modal"
	"github.com/shopneo/console/internal/core/mutation"
	"github.com/shopneo/console/internal/core/resource"
	"github.com/shopneo/console/internal/transport"
)

var errEditConflict = errors.New("another record is open for editing")

// ConsoleHandler serves both top-level routes (/app/:entity/:id) and nested
// ones (/app/:entity/:id/:child/:childId) from the same handlers. Consoles
// come from the caller's own workspace.
type ConsoleHandler struct{}

func NewConsoleHandler() *ConsoleHandler {
	return &ConsoleHandler{}
}

func (h *ConsoleHandler) resolve(c *gin.Context) (*console.Console, string, bool) {
	ws, ok := middleware.GetWorkspace(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return nil, "", false
	}

	var (
		con *console.Console
		id  string
		err error
	)
	if child := c.Param("child"); child != "" {
		con, err = ws.Consoles.Child(c.Param("entity"), c.Param("id"), child)
		id = c.Param("childId")
	} else {
		con, err = ws.Consoles.Console(c.Param("entity"))
		id = c.Param("id")
	}
	if err != nil {
		writeError(c, err, "")
		return nil, "", false
	}
	return con, id, true
}

func (h *ConsoleHandler) List(c *gin.Context) {
	con, _, ok := h.resolve(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))

	view, err := con.View(c.Request.Context(), resource.Query{
		Search:   c.Query("search"),
		Status:   c.Query("status"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		writeError(c, err, con.Definition().Messages.Load)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *ConsoleHandler) Refresh(c *gin.Context) {
	con, _, ok := h.resolve(c)
	if !ok {
		return
	}

	page, err := con.Refresh(c.Request.Context())
	if err != nil {
		writeError(c, err, con.Definition().Messages.Load)
		return
	}

	c.JSON(http.StatusOK, gin.H{"totalCount": page.TotalCount, "state": con.State()})
}

func (h *ConsoleHandler) Get(c *gin.Context) {
	con, id, ok := h.resolve(c)
	if !ok {
		return
	}

	ed, err := con.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, con.Definition().Messages.Load)
		return
	}

	c.JSON(http.StatusOK, ed)
}

func (h *ConsoleHandler) Create(c *gin.Context) {
	con, _, ok := h.resolve(c)
	if !ok {
		return
	}

	form, err := readForm(c, con.Definition())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	writeOutcome(c, con.Save(c.Request.Context(), "", form), http.StatusCreated)
}

// Update overlays the posted fields on the record as the server has it now,
// so a partial form does not blank the rest.
func (h *ConsoleHandler) Update(c *gin.Context) {
	con, id, ok := h.resolve(c)
	if !ok {
		return
	}

	patch, err := readForm(c, con.Definition())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	current, err := con.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, con.Definition().Messages.Load)
		return
	}

	writeOutcome(c, con.Save(c.Request.Context(), id, overlay(current.Form, patch)), http.StatusOK)
}

func (h *ConsoleHandler) Delete(c *gin.Context) {
	con, id, ok := h.resolve(c)
	if !ok {
		return
	}

	if c.Query("confirm") != "true" {
		c.JSON(http.StatusPreconditionRequired, gin.H{"error": "confirm=true is required to delete"})
		return
	}

	writeOutcome(c, con.Delete(c.Request.Context(), id), http.StatusOK)
}

// OpenEdit opens the edit modal on a child record.
func (h *ConsoleHandler) OpenEdit(c *gin.Context) {
	con, id, ok := h.resolve(c)
	if !ok {
		return
	}

	if err := con.Edit(c.Request.Context(), id); err != nil {
		writeError(c, err, con.Definition().Messages.Load)
		return
	}

	c.JSON(http.StatusOK, con.Modal().Snapshot())
}

// EditFields writes posted fields into the open modal.
func (h *ConsoleHandler) EditFields(c *gin.Context) {
	con, id, ok := h.resolve(c)
	if !ok {
		return
	}
	if !h.editing(c, con, id) {
		return
	}

	patch, err := readForm(c, con.Definition())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := applyToModal(con.Modal(), patch); err != nil {
		writeError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, con.Modal().Snapshot())
}

// SubmitEdit saves the open modal. Fields posted with the request are
// applied first.
func (h *ConsoleHandler) SubmitEdit(c *gin.Context) {
	con, id, ok := h.resolve(c)
	if !ok {
		return
	}
	if !h.editing(c, con, id) {
		return
	}

	patch, err := readForm(c, con.Definition())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := applyToModal(con.Modal(), patch); err != nil {
		writeError(c, err, "")
		return
	}

	out, err := con.SubmitEdit(c.Request.Context())
	if err != nil {
		writeError(c, err, "")
		return
	}
	writeOutcome(c, out, http.StatusOK)
}

func (h *ConsoleHandler) CloseEdit(c *gin.Context) {
	con, _, ok := h.resolve(c)
	if !ok {
		return
	}

	con.CloseEdit()
	c.JSON(http.StatusOK, con.Modal().Snapshot())
}

func (h *ConsoleHandler) Notices(c *gin.Context) {
	con, _, ok := h.resolve(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"notices": con.Notices()})
}

// editing checks the modal is open on id.
func (h *ConsoleHandler) editing(c *gin.Context, con *console.Console, id string) bool {
	snap := con.Modal().Snapshot()
	if snap.State == modal.StateClosed {
		writeError(c, modal.ErrNotOpen, "")
		return false
	}
	if snap.Key.ID != id {
		writeError(c, errEditConflict, "")
		return false
	}
	return true
}

func applyToModal(w *modal.Workflow, patch *mutation.FormState) error {
	for k, v := range patch.Values {
		if err := w.Set(k, v); err != nil {
			return err
		}
	}
	for k, v := range patch.Lists {
		if err := w.SetList(k, v); err != nil {
			return err
		}
	}
	for k, files := range patch.Files {
		for _, f := range files {
			if err := w.AddFile(k, f); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeOutcome(c *gin.Context, out mutation.Outcome, successStatus int) {
	if out.OK() {
		c.JSON(successStatus, out)
		return
	}
	if len(out.Fields) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": out.Reason, "details": out.Fields})
		return
	}
	status := http.StatusBadGateway
	if out.Err != nil {
		status = statusFor(out.Err)
	}
	c.JSON(status, gin.H{"error": out.Reason, "outcome": out})
}

func writeError(c *gin.Context, err error, fallback string) {
	status := statusFor(err)
	msg := err.Error()
	switch {
	case status == http.StatusInternalServerError:
		msg = "Something went wrong"
	case isUpstream(err):
		msg = transport.PublicMessage(err, fallback)
	}
	c.JSON(status, gin.H{"error": msg})
}

func statusFor(err error) int {
	var he *transport.HTTPError
	switch {
	case errors.Is(err, resource.ErrUnknownEntity), errors.Is(err, resource.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, resource.ErrParentRequired), errors.Is(err, resource.ErrUnknownStatus):
		return http.StatusBadRequest
	case errors.Is(err, resource.ErrUnsupported):
		return http.StatusMethodNotAllowed
	case errors.Is(err, modal.ErrNotOpen), errors.Is(err, modal.ErrSubmitting), errors.Is(err, errEditConflict):
		return http.StatusConflict
	case errors.Is(err, resource.ErrSuperseded), errors.Is(err, resource.ErrUnmounted):
		return http.StatusConflict
	case errors.As(err, &he):
		if he.Status < http.StatusInternalServerError {
			return he.Status
		}
		return http.StatusBadGateway
	case transport.IsNetwork(err), transport.IsDecode(err):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func isUpstream(err error) bool {
	var he *transport.HTTPError
	return errors.As(err, &he) || transport.IsNetwork(err) || transport.IsDecode(err)
}
