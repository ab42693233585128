package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pbis-api/internal/models"
	appErrors "github.com/noah-isme/pbis-api/pkg/errors"
)

func queryDate(c *gin.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	parsed, ok := models.ParseDate(raw)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid "+name+", expected YYYY-MM-DD")
	}
	return &parsed, nil
}

func queryDateRange(c *gin.Context) (models.DateRange, error) {
	from, err := queryDate(c, "from")
	if err != nil {
		return models.DateRange{}, err
	}
	to, err := queryDate(c, "to")
	if err != nil {
		return models.DateRange{}, err
	}
	return models.DateRange{From: from, To: to}, nil
}

// queryMonth reads year and month, defaulting each to the current one.
func queryMonth(c *gin.Context, now time.Time) (models.MonthKey, error) {
	key := models.NewMonthKey(now)
	if raw := strings.TrimSpace(c.Query("year")); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return key, appErrors.Clone(appErrors.ErrValidation, "year must be a number")
		}
		key.Year = year
	}
	if raw := strings.TrimSpace(c.Query("month")); raw != "" {
		month, err := strconv.Atoi(raw)
		if err != nil {
			return key, appErrors.Clone(appErrors.ErrValidation, "month must be a number")
		}
		key.Month = month
	}
	return key, nil
}
