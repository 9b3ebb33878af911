// Package params parses and range-checks query parameters.
package params

import (
	"fmt"
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/ragdesk/internal/domain"
)

// Int reads an integer query parameter, falling back to def when absent.
// Values outside [lo, hi] are rejected with domain.ErrInvalidRequest.
func Int(c *gin.Context, key string, def, lo, hi int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidRequest, key)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%w: %s must be between %d and %d", domain.ErrInvalidRequest, key, lo, hi)
	}
	return n, nil
}

// Page reads skip (>= 0) and limit (1..maxLimit, default defLimit)
func Page(c *gin.Context, defLimit, maxLimit int) (skip, limit int, err error) {
	if skip, err = Int(c, "skip", 0, 0, math.MaxInt32); err != nil {
		return 0, 0, err
	}
	if limit, err = Int(c, "limit", defLimit, 1, maxLimit); err != nil {
		return 0, 0, err
	}
	return skip, limit, nil
}
