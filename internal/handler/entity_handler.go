package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edu-admin-api/internal/access"
	"github.com/noah-isme/edu-admin-api/internal/middleware"
	"github.com/noah-isme/edu-admin-api/internal/models"
	"github.com/noah-isme/edu-admin-api/internal/service"
	"github.com/noah-isme/edu-admin-api/pkg/response"
)

type entityService[E any] interface {
	List(ctx context.Context, caller access.Identity, req service.ListRequest) (*models.Page[E], error)
	Get(ctx context.Context, caller access.Identity, id int64, include ...string) (*E, error)
	Create(ctx context.Context, caller access.Identity, item *E) (*E, error)
	Update(ctx context.Context, caller access.Identity, id int64, item *E) (*E, error)
	Delete(ctx context.Context, caller access.Identity, id int64) error
}

// filterPtr is satisfied by pointers to the list filter structs.
type filterPtr[F any] interface {
	*F
	service.Filter
}

// EntityHandler exposes the CRUD endpoints of one entity. F is the query
// filter bound from the request.
type EntityHandler[E any, F any, PF filterPtr[F]] struct {
	svc             entityService[E]
	defaultPageSize int
}

// NewEntityHandler constructs an EntityHandler.
func NewEntityHandler[E any, F any, PF filterPtr[F]](svc entityService[E], defaultPageSize int) *EntityHandler[E, F, PF] {
	if defaultPageSize < 1 {
		defaultPageSize = 20
	}
	return &EntityHandler[E, F, PF]{svc: svc, defaultPageSize: defaultPageSize}
}

// List godoc
// @Summary List visible records
// @Description Rows are limited to what the caller's role may see, then narrowed by the entity filters.
// @Tags Entities
// @Produce json
// @Param page query int false "Page number (1-based)"
// @Param limit query int false "Page size"
// @Param sort query string false "Sort key"
// @Param order query string false "asc or desc"
// @Param include query string false "Comma separated relations"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /{entity} [get]
func (h *EntityHandler[E, F, PF]) List(c *gin.Context) {
	params, err := parseListParams(c, h.defaultPageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := PF(new(F))
	if err := bindQuery(c, filter); err != nil {
		response.Error(c, err)
		return
	}
	page, err := h.svc.List(c.Request.Context(), middleware.IdentityFromContext(c), service.ListRequest{
		Filter:   filter.Predicate(),
		SortBy:   params.sortBy,
		Desc:     params.desc,
		Page:     params.page,
		PageSize: params.pageSize,
		Include:  params.include,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paged(c, page, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get a visible record
// @Tags Entities
// @Produce json
// @Param id path int true "Record ID"
// @Param include query string false "Comma separated relations"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /{entity}/{id} [get]
func (h *EntityHandler[E, F, PF]) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	item, err := h.svc.Get(c.Request.Context(), middleware.IdentityFromContext(c), id, splitList(c.Query("include"))...)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Create a record
// @Tags Entities
// @Accept json
// @Produce json
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /{entity} [post]
func (h *EntityHandler[E, F, PF]) Create(c *gin.Context) {
	item := new(E)
	if err := bindJSON(c, item); err != nil {
		response.Error(c, err)
		return
	}
	created, err := h.svc.Create(c.Request.Context(), middleware.IdentityFromContext(c), item)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Update godoc
// @Summary Replace a visible record
// @Tags Entities
// @Accept json
// @Produce json
// @Param id path int true "Record ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /{entity}/{id} [put]
func (h *EntityHandler[E, F, PF]) Update(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	item := new(E)
	if err := bindJSON(c, item); err != nil {
		response.Error(c, err)
		return
	}
	updated, err := h.svc.Update(c.Request.Context(), middleware.IdentityFromContext(c), id, item)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Delete godoc
// @Summary Delete a visible record
// @Tags Entities
// @Param id path int true "Record ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /{entity}/{id} [delete]
func (h *EntityHandler[E, F, PF]) Delete(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.IdentityFromContext(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RegisterRead mounts the list and detail routes.
func (h *EntityHandler[E, F, PF]) RegisterRead(r gin.IRoutes) {
	r.GET("", h.List)
	r.GET("/:id", h.Get)
}

// RegisterWrite mounts the create, replace and delete routes.
func (h *EntityHandler[E, F, PF]) RegisterWrite(r gin.IRoutes) {
	r.POST("", h.Create)
	r.PUT("/:id", h.Update)
	r.DELETE("/:id", h.Delete)
}
