package upload

import "github.com/gin-gonic/gin"

// RegisterRoutes registers the upload routes on the given group.
func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	uploads := r.Group("/uploads")
	{
		uploads.POST("", h.StoreAll)
		uploads.POST("/delete", h.DeleteMarked)
		uploads.DELETE("/:field", h.DeleteOne)
		uploads.GET("/fields", h.FieldNames)
	}
}
