package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/adfharrison1/go-tours/pkg/content"
	"github.com/adfharrison1/go-tours/pkg/domain"
)

// Query parameters that control paging rather than filter documents
var paginationParams = map[string]bool{
	"limit": true, "offset": true, "after": true, "before": true, "sort": true, "desc": true,
}

// HandleFindAll handles GET requests to list documents of a kind. Query
// parameters other than the paging ones become equality filters.
func (h *Handler) HandleFindAll(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}
	h.logger.Debug("handleFindAll called", zap.String("kind", kind.Name))

	query := r.URL.Query()
	options, err := parsePagination(query, kind.DefaultSort, kind.DefaultDesc)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter := parseFilter(kind, query)

	result, err := h.store.DB().FindAll(kind.Collection, filter, options)
	if err != nil {
		if errors.Is(err, domain.ErrCollectionNotFound) {
			WriteStoreError(w, err)
			return
		}
		// Everything else is a bad cursor or paging combination
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Debug("Found documents",
		zap.String("kind", kind.Name),
		zap.Int("count", len(result.Documents)),
		zap.Any("filter", filter))
	writeJSON(w, http.StatusOK, result)
}

// parsePagination reads limit, offset, after, before, sort and desc
func parsePagination(query url.Values, defaultSort string, defaultDesc bool) (*domain.PaginationOptions, error) {
	options := domain.DefaultPaginationOptions()
	options.SortBy = defaultSort
	options.Desc = defaultDesc

	if v := query.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			return nil, fmt.Errorf("invalid limit: %q", v)
		}
		options.Limit = limit
	}
	if v := query.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			return nil, fmt.Errorf("invalid offset: %q", v)
		}
		options.Offset = offset
	}
	options.After = query.Get("after")
	options.Before = query.Get("before")
	if v := query.Get("sort"); v != "" {
		options.SortBy = v
		options.Desc = false
	}
	if v := query.Get("desc"); v != "" {
		desc, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid desc: %q", v)
		}
		options.Desc = desc
	}

	if err := options.Validate(); err != nil {
		return nil, err
	}
	return options, nil
}

// parseFilter turns the non-paging query parameters into an equality filter.
// Values of the kind's fields are converted to the field's stored type;
// anything else (_id, time stamps) is matched as text.
func parseFilter(kind *content.Kind, query url.Values) map[string]interface{} {
	filter := make(map[string]interface{})
	for key, values := range query {
		if paginationParams[key] || len(values) == 0 {
			continue
		}
		raw := values[0] // Take first value if multiple provided
		if field, ok := kind.Field(key); ok {
			filter[key] = content.FilterValue(field, raw)
			continue
		}
		filter[key] = raw
	}
	return filter
}
