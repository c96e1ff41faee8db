package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/elo-edu/secretaria-api/internal/dto"
	"github.com/elo-edu/secretaria-api/internal/service"
	appErrors "github.com/elo-edu/secretaria-api/pkg/errors"
	"github.com/elo-edu/secretaria-api/pkg/response"
)

// DocumentHandler exposes the secretary document endpoints.
type DocumentHandler struct {
	secretary *service.SecretaryService
	tokens    *service.DownloadTokenService
	validate  *validator.Validate
	baseURL   string
}

// NewDocumentHandler constructs DocumentHandler. baseURL is the public base
// the API is served under, used to build absolute download links.
func NewDocumentHandler(secretary *service.SecretaryService, tokens *service.DownloadTokenService, validate *validator.Validate, baseURL string) *DocumentHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &DocumentHandler{secretary: secretary, tokens: tokens, validate: validate, baseURL: baseURL}
}

// Issue godoc
// @Summary Issue a document
// @Description Aggregates academic data, signs the document and stores it under its verification code.
// @Tags Documents
// @Accept json
// @Produce json
// @Param payload body dto.IssueDocumentRequest true "Issuance payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /documents [post]
func (h *DocumentHandler) Issue(c *gin.Context) {
	var req dto.IssueDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	doc, err := h.secretary.Issue(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.DocumentResponse{
		Document:      doc,
		ValidationURL: h.secretary.ValidationURL(doc.ID),
	})
}

// List godoc
// @Summary List issued documents
// @Tags Documents
// @Produce json
// @Param partition query string false "Partition filter (transcripts, declarations, certificates, transfers)"
// @Param limit query int false "Max rows"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	docs, err := h.secretary.List(c.Request.Context(), c.Query("partition"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, docs, nil)
}

// Stats godoc
// @Summary Document issuance statistics
// @Tags Documents
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/stats [get]
func (h *DocumentHandler) Stats(c *gin.Context) {
	stats, err := h.secretary.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Get godoc
// @Summary Get a document by verification code
// @Tags Documents
// @Produce json
// @Param code path string true "Verification code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{code} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.secretary.GetDocument(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// Cancel godoc
// @Summary Cancel a signed document
// @Tags Documents
// @Accept json
// @Produce json
// @Param code path string true "Verification code"
// @Param payload body dto.CancelDocumentRequest true "Cancellation reason"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{code}/cancel [post]
func (h *DocumentHandler) Cancel(c *gin.Context) {
	var req dto.CancelDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	doc, err := h.secretary.Cancel(c.Request.Context(), c.Param("code"), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// Reissue godoc
// @Summary Reissue a document under a new verification code
// @Tags Documents
// @Produce json
// @Param code path string true "Verification code of the original"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{code}/reissue [post]
func (h *DocumentHandler) Reissue(c *gin.Context) {
	doc, err := h.secretary.Reissue(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.DocumentResponse{
		Document:      doc,
		ValidationURL: h.secretary.ValidationURL(doc.ID),
	})
}

// RenderPDF godoc
// @Summary Download the rendered PDF
// @Tags Documents
// @Produce application/pdf
// @Param code path string true "Verification code"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /documents/{code}/pdf [get]
func (h *DocumentHandler) RenderPDF(c *gin.Context) {
	h.servePDF(c, c.Param("code"))
}

// DownloadURL godoc
// @Summary Generate a short-lived public download link
// @Tags Documents
// @Produce json
// @Param code path string true "Verification code"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{code}/download-url [get]
func (h *DocumentHandler) DownloadURL(c *gin.Context) {
	code := c.Param("code")
	if _, err := h.secretary.GetDocument(c.Request.Context(), code); err != nil {
		response.Error(c, err)
		return
	}
	token, expiresAt, err := h.tokens.Generate(code)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.DownloadURLResponse{
		URL:       fmt.Sprintf("%s/documents/download?token=%s", h.baseURL, token),
		ExpiresAt: expiresAt,
	}, nil)
}

// Download godoc
// @Summary Download a PDF using a signed token
// @Tags Documents
// @Produce application/pdf
// @Param token query string true "Download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /documents/download [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	code, err := h.tokens.Parse(c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.servePDF(c, code)
}

func (h *DocumentHandler) servePDF(c *gin.Context, code string) {
	data, err := h.secretary.Render(c.Request.Context(), code)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", code))
	c.Data(http.StatusOK, "application/pdf", data)
}

// GetInstitution godoc
// @Summary Current institution profile
// @Tags Institution
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /institution [get]
func (h *DocumentHandler) GetInstitution(c *gin.Context) {
	profile, err := h.secretary.InstitutionProfile(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// UpdateInstitution godoc
// @Summary Replace the institution profile
// @Tags Institution
// @Accept json
// @Produce json
// @Param payload body dto.InstitutionProfileRequest true "Institution profile"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /institution [put]
func (h *DocumentHandler) UpdateInstitution(c *gin.Context) {
	var req dto.InstitutionProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	profile := req.Snapshot()
	if err := h.secretary.ConfigureInstitution(c.Request.Context(), &profile); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}
