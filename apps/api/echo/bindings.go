package echoapi

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jckckids/backend/core"
)

var (
	startDateParam = "startDate"
	endDateParam   = "endDate"
	dateLayout     = "2006-01-02"
)

// bindDateRange reads the optional startDate/endDate query params. The end
// bound stretches to the last instant of its day so the range is inclusive.
func bindDateRange(ctx echo.Context, loc *time.Location) core.DateRange {
	var dr core.DateRange
	if raw := ctx.QueryParam(startDateParam); raw != "" {
		if t, err := time.ParseInLocation(dateLayout, raw, loc); err == nil {
			dr.From = t
		}
	}
	if raw := ctx.QueryParam(endDateParam); raw != "" {
		if t, err := time.ParseInLocation(dateLayout, raw, loc); err == nil {
			dr.To = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
	}
	return dr
}

// bindPage reads page/limit query params with sane defaults.
func bindPage(ctx echo.Context) core.PageQuery {
	var page core.PageQuery
	_ = ctx.Bind(&page)
	page.Clean()
	return page
}
