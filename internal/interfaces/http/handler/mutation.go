package handler

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	appmutation "github.com/mutasi/backend/internal/application/mutation"
	"github.com/mutasi/backend/internal/domain/mutation"
	"github.com/mutasi/backend/internal/interfaces/http/middleware"
)

// MutationHandler serves the Berita Acara Mutasi endpoints
type MutationHandler struct {
	BaseHandler
	svc *appmutation.Service
}

// NewMutationHandler creates a mutation handler
func NewMutationHandler(svc *appmutation.Service) *MutationHandler {
	return &MutationHandler{svc: svc}
}

// RegisterRoutes registers the mutation routes
func (h *MutationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	mutasi := rg.Group("/mutasi")
	mutasi.POST("", h.Submit)
	mutasi.GET("", h.List)
	mutasi.POST("/preview", h.Preview)
	mutasi.GET("/:id", h.Detail)
	mutasi.POST("/:id/receive", h.Receive)
}

// actorFromContext builds the acting user from the validated claims
func actorFromContext(c *gin.Context) (appmutation.Actor, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		return appmutation.Actor{}, false
	}
	return appmutation.Actor{
		UserID:     claims.UserID,
		Name:       claims.DisplayName(),
		OutletID:   claims.OutletID,
		OutletName: claims.OutletName,
		Superadmin: claims.IsSuperadmin(),
	}, true
}

// submitInputFromForm reads the multipart submission shared by Submit
// and Preview. Items arrive as a JSON array in the items_json field.
func (h *MutationHandler) submitInputFromForm(c *gin.Context) (appmutation.SubmitInput, bool) {
	input := appmutation.SubmitInput{
		NoForm:         c.PostForm("no_form"),
		Tanggal:        c.PostForm("tanggal"),
		OutletPengirim: c.PostForm("outlet_pengirim"),
		OutletPenerima: c.PostForm("outlet_penerima"),
		DibuatOleh:     c.PostForm("dibuat_oleh"),
		DisetujuiOleh:  c.PostForm("disetujui_oleh"),
		DiterimaOleh:   c.PostForm("diterima_oleh"),
	}

	if itemsJSON := c.PostForm("items_json"); itemsJSON != "" {
		var items []mutation.Item
		if err := json.Unmarshal([]byte(itemsJSON), &items); err != nil {
			h.BadRequest(c, "items_json is not a valid item list")
			return input, false
		}
		input.Items = items
	}

	file, header, err := c.Request.FormFile("file_upload")
	if err == nil {
		attachment, readErr := readAttachment(file, header)
		if readErr != nil {
			h.BadRequest(c, "failed to read uploaded file")
			return input, false
		}
		input.Attachment = attachment
	} else if err != http.ErrMissingFile {
		h.BadRequest(c, "failed to read uploaded file")
		return input, false
	}
	return input, true
}

func readAttachment(file multipart.File, header *multipart.FileHeader) (*appmutation.Attachment, error) {
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return &appmutation.Attachment{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// Submit handles POST /mutasi
func (h *MutationHandler) Submit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		h.Unauthorized(c)
		return
	}
	input, ok := h.submitInputFromForm(c)
	if !ok {
		return
	}

	header, err := h.svc.Submit(c.Request.Context(), actor, input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, header)
}

// List handles GET /mutasi
func (h *MutationHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		h.Unauthorized(c)
		return
	}

	result, err := h.svc.List(c.Request.Context(), actor, appmutation.ListInput{
		DateFrom: c.Query("start"),
		DateTo:   c.Query("end"),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Detail handles GET /mutasi/:id
func (h *MutationHandler) Detail(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		h.Unauthorized(c)
		return
	}

	result, err := h.svc.Detail(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ReceiveRequest carries the hand-entered received quantities
type ReceiveRequest struct {
	Received map[string]string `json:"received" binding:"required"`
}

// Receive handles POST /mutasi/:id/receive
func (h *MutationHandler) Receive(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		h.Unauthorized(c)
		return
	}

	var req ReceiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "request body must contain the received quantities")
		return
	}

	result, err := h.svc.Receive(c.Request.Context(), actor, c.Param("id"),
		appmutation.ReceiveInput{Received: req.Received})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{
		"status":         result.Status,
		"total_sent":     result.TotalSent,
		"total_received": result.TotalReceived,
		"changed_lines":  len(result.Lines),
	})
}

// Preview handles POST /mutasi/preview. The submission is validated and
// rendered to PDF without being persisted.
func (h *MutationHandler) Preview(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		h.Unauthorized(c)
		return
	}
	input, ok := h.submitInputFromForm(c)
	if !ok {
		return
	}

	pdf, filename, err := h.svc.Preview(c.Request.Context(), actor, input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}
