package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/edu-admin-api/pkg/errors"
)

// listParams are the query parameters shared by every list endpoint.
type listParams struct {
	page     int
	pageSize int
	sortBy   string
	desc     bool
	include  []string
}

func parseListParams(c *gin.Context, defaultPageSize int) (listParams, error) {
	var p listParams
	var err error
	if p.page, err = intQuery(c, "page", 1); err != nil {
		return p, err
	}
	if p.pageSize, err = intQuery(c, "limit", defaultPageSize); err != nil {
		return p, err
	}
	p.sortBy = strings.TrimSpace(c.Query("sort"))
	if p.desc, err = parseOrder(c.Query("order")); err != nil {
		return p, err
	}
	p.include = splitList(c.Query("include"))
	return p, nil
}

func intQuery(c *gin.Context, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInvalidArgument.Code, http.StatusBadRequest, key+" must be an integer")
	}
	return v, nil
}

func parseOrder(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "asc":
		return false, nil
	case "desc":
		return true, nil
	default:
		return false, appErrors.Clone(appErrors.ErrInvalidArgument, "order must be asc or desc")
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, appErrors.Clone(appErrors.ErrInvalidArgument, "invalid id")
	}
	return id, nil
}

func bindQuery(c *gin.Context, dest interface{}) error {
	if err := c.ShouldBindQuery(dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters")
	}
	return nil
}

func bindJSON(c *gin.Context, dest interface{}) error {
	if err := c.ShouldBindJSON(dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload")
	}
	return nil
}
