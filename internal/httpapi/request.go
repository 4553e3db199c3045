package httpapi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AntonStoeckl/provider-directory-go/directory"
)

var errBadRequest = errors.New("bad request")

type searchRequest struct {
	filters directory.Filters
	paged   bool
	page    int
	size    int
}

// parseSearchRequest reads the /providers query. Tag parameters may repeat and may hold
// comma separated lists. A request is paged as soon as page or size is present.
func parseSearchRequest(c *gin.Context, defaultSize, maxSize int) (searchRequest, error) {
	builder := directory.BuildFilters().
		NameContaining(c.Query("name")).
		SortedBy(directory.ParseSortMode(c.Query("sort")))

	if raw, ok := c.GetQuery("bbox"); ok {
		box, err := parseBoundingBox(raw)
		if err != nil {
			return searchRequest{}, err
		}
		builder.WithinBounds(box)
	}

	if specialties := splitList(c.QueryArray("specialty")); len(specialties) > 0 {
		builder.WithAnySpecialtyOf(specialties[0], specialties[1:]...)
	}

	if categories := splitList(c.QueryArray("category")); len(categories) > 0 {
		builder.WithAnyCategoryOf(categories[0], categories[1:]...)
	}

	req := searchRequest{filters: builder.Finalize(), size: defaultSize}

	rawPage, hasPage := c.GetQuery("page")
	rawSize, hasSize := c.GetQuery("size")
	if !hasPage && !hasSize {
		return req, nil
	}
	req.paged = true

	var err error
	if hasPage {
		if req.page, err = strconv.Atoi(rawPage); err != nil || req.page < 0 {
			return searchRequest{}, fmt.Errorf("%w: page %q", errBadRequest, rawPage)
		}
	}

	if hasSize {
		if req.size, err = strconv.Atoi(rawSize); err != nil || req.size <= 0 || req.size > maxSize {
			return searchRequest{}, fmt.Errorf("%w: size %q, allowed 1..%d", errBadRequest, rawSize, maxSize)
		}
	}

	return req, nil
}

// parseBoundingBox parses "south,west,north,east".
func parseBoundingBox(raw string) (directory.BoundingBox, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return directory.BoundingBox{}, fmt.Errorf("%w: bbox needs south,west,north,east, got %q", errBadRequest, raw)
	}

	var coords [4]float64
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return directory.BoundingBox{}, fmt.Errorf("%w: bbox coordinate %q", errBadRequest, part)
		}
		coords[i] = v
	}

	return directory.BoundingBox{South: coords[0], West: coords[1], North: coords[2], East: coords[3]}, nil
}

func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}

	return out
}
