package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// schoolID extracts the mandatory school_id query parameter. Every fee
// endpoint is tenant-scoped; a missing or malformed value aborts with 400.
func schoolID(c *gin.Context) (uint, bool) {
	raw := c.Query("school_id")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "school_id is required"})
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "school_id must be a positive integer"})
		return 0, false
	}
	return uint(id), true
}

// idParam parses the :id path parameter.
func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

// parseDate parses a 2006-01-02 date string, empty input yields nil.
func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// isUniqueViolation reports whether err is a unique-constraint failure, for
// both the postgres and the sqlite drivers. Unique indexes double as
// idempotency guards here, so handlers need to tell this apart from other
// database errors.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}

// likePattern builds a case-insensitive LIKE argument.
func likePattern(s string) string {
	return "%" + strings.ToLower(s) + "%"
}
