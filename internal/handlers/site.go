package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/folio/internal/services"
	apperrors "github.com/charlesng35/folio/pkg/errors"
	"github.com/charlesng35/folio/pkg/response"
)

const maxSiteDocumentBytes = 1 << 20

// SiteHandler serves the portfolio content and theme documents.
type SiteHandler struct {
	site *services.SiteService
}

func NewSiteHandler(site *services.SiteService) *SiteHandler {
	return &SiteHandler{site: site}
}

// GET /api/site/theme
func (h *SiteHandler) Theme(c *gin.Context) {
	h.read(c, h.site.Theme)
}

// GET /api/site/content
func (h *SiteHandler) Content(c *gin.Context) {
	h.read(c, h.site.Content)
}

// PUT /api/admin/site/theme
func (h *SiteHandler) UpdateTheme(c *gin.Context) {
	h.write(c, h.site.UpdateTheme)
}

// PUT /api/admin/site/content
func (h *SiteHandler) UpdateContent(c *gin.Context) {
	h.write(c, h.site.UpdateContent)
}

func (h *SiteHandler) read(c *gin.Context, get func(context.Context) (*services.SiteDocument, error)) {
	doc, err := get(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, doc)
}

func (h *SiteHandler) write(c *gin.Context, put func(context.Context, json.RawMessage, string) (*services.SiteDocument, error)) {
	admin, ok := requireUser(c)
	if !ok {
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSiteDocumentBytes+1))
	if err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid request body"))
		return
	}
	if len(body) > maxSiteDocumentBytes {
		response.Error(c, apperrors.NewBadRequest("document is too large"))
		return
	}

	doc, err := put(requestContext(c), json.RawMessage(body), admin.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, doc)
}
