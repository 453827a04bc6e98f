package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edu-admin-api/internal/access"
	"github.com/noah-isme/edu-admin-api/internal/middleware"
	"github.com/noah-isme/edu-admin-api/internal/models"
	"github.com/noah-isme/edu-admin-api/pkg/response"
)

type featureCatalog interface {
	Catalog(ctx context.Context, caller access.Identity) ([]models.Feature, bool, error)
}

// FeatureHandler serves the cached feature catalog.
type FeatureHandler struct {
	features featureCatalog
}

// NewFeatureHandler constructs FeatureHandler.
func NewFeatureHandler(features featureCatalog) *FeatureHandler {
	return &FeatureHandler{features: features}
}

// Catalog godoc
// @Summary Feature catalog
// @Description Features visible to the caller ordered by name. Served from Redis when caching is enabled.
// @Tags Features
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /features/catalog [get]
func (h *FeatureHandler) Catalog(c *gin.Context) {
	features, hit, err := h.features.Catalog(c.Request.Context(), middleware.IdentityFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, features, nil, middleware.ExtractMeta(c))
}
