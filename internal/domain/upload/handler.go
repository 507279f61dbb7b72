package upload

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler exposes the upload pipeline over HTTP. Form parsing stays
// here; the service only ever sees a Source and plain form values.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// StoreAll accepts a multipart form, runs every declared upload field
// through the pipeline and returns the resulting entity.
func (h *Handler) StoreAll(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid multipart form"})
		return
	}
	entity, err := h.service.StoreAll(c.Request.Context(), NewMultipartSource(form), firstValues(form.Value), nil)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": entity})
}

// DeleteMarked deletes every upload flagged with {field}_delete in the
// form and returns the _id keys cleared.
func (h *Handler) DeleteMarked(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		if err := c.Request.ParseForm(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid form"})
			return
		}
	}
	form := firstValues(c.Request.Form)
	cleared, err := h.service.DeleteMarked(c.Request.Context(), form)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"cleared": cleared}})
}

// DeleteOne deletes a single upload by field or thumbnail name; the
// identifier comes from the ?id query parameter.
func (h *Handler) DeleteOne(c *gin.Context) {
	field := c.Param("field")
	form := map[string]string{field + "_id": c.Query("id")}
	key, err := h.service.DeleteOne(c.Request.Context(), form, field, 0)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"cleared": key}})
}

// FieldNames lists every field and thumbnail name declared in the spec.
func (h *Handler) FieldNames(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": h.service.FieldNames()})
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidIdentifier),
		errors.Is(err, ErrNoExtension),
		errors.Is(err, ErrNoMimeType),
		errors.Is(err, ErrInvalidBounds):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
	default:
		log.Printf("upload: request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "upload processing failed"})
	}
}

// firstValues flattens url.Values-shaped form data to its first value
// per key.
func firstValues(values map[string][]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
