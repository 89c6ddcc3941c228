package presentationhandler

import (
	"errors"
	"net/http"

	"slidecollabgo/internal/services/presentation"
	"slidecollabgo/internal/services/progress"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc     presentation.IPresentationService
	progSvc progress.IProgressService // nil when Redis is not configured
}

func New(svc presentation.IPresentationService, progSvc progress.IProgressService) *Handler {
	return &Handler{svc: svc, progSvc: progSvc}
}

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/presentations", h.list)
	r.POST("/presentations", h.create)
	r.GET("/presentations/:id", h.get)
	r.PATCH("/presentations/:id", h.update)
	r.DELETE("/presentations/:id", h.remove)
	r.POST("/presentations/:id/duplicate", h.duplicate)
	r.PUT("/presentations/:id/slides", h.replaceSlides)
	if h.progSvc != nil {
		r.GET("/presentations/:id/progress", h.getProgress)
	}
}

// ownerID is supplied by the fronting auth proxy; authn itself happens there.
func ownerID(c *gin.Context) string { return c.GetHeader("X-User-ID") }

func (h *Handler) list(c *gin.Context) {
	owner := ownerID(c)
	if owner == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing user identity"})
		return
	}
	out, err := h.svc.ListPresentations(c, owner)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) get(c *gin.Context) {
	dto, err := h.svc.GetPresentation(c, c.Param("id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, presentation.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto)
}

func (h *Handler) create(c *gin.Context) {
	owner := ownerID(c)
	if owner == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing user identity"})
		return
	}
	var body CreatePresentationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	dto, err := h.svc.CreatePresentation(c, owner, body.Title, body.Description)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, dto)
}

func (h *Handler) update(c *gin.Context) {
	var body UpdatePresentationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	err := h.svc.UpdatePresentation(c, c.Param("id"), presentation.UpdateFields{
		Title:       body.Title,
		Description: body.Description,
		Theme:       body.Theme,
		IsPublic:    body.IsPublic,
	})
	if err != nil {
		switch {
		case errors.Is(err, presentation.ErrNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		case errors.Is(err, presentation.ErrEmptyTitle):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		}
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) remove(c *gin.Context) {
	err := h.svc.DeletePresentation(c, c.Param("id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, presentation.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) duplicate(c *gin.Context) {
	owner := ownerID(c)
	if owner == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing user identity"})
		return
	}
	id, err := h.svc.DuplicatePresentation(c, c.Param("id"), owner)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, presentation.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, DuplicateResponse{ID: id})
}

func (h *Handler) replaceSlides(c *gin.Context) {
	var body ReplaceSlidesBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	slides, err := h.svc.ReplaceSlides(c, c.Param("id"), body.Slides)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, presentation.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, slides)
}

func (h *Handler) getProgress(c *gin.Context) {
	st, err := h.progSvc.Get(c, c.Param("id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, progress.ErrNotTracked) {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, st)
}
