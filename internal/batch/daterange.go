package batch

import (
	"fmt"
	"time"

	"fjacquet/stmt-ingest/internal/models"
	"fjacquet/stmt-ingest/internal/normalizer"
)

// DateRange represents a date range with start and end dates
type DateRange struct {
	Start time.Time
	End   time.Time
}

// String returns the date range in the format "YYYY-MM-DD_YYYY-MM-DD"
func (dr DateRange) String() string {
	if dr.Start.IsZero() || dr.End.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s_%s",
		dr.Start.Format(normalizer.DateLayoutISO),
		dr.End.Format(normalizer.DateLayoutISO))
}

// Merge combines this date range with another, returning the overall range
func (dr DateRange) Merge(other DateRange) DateRange {
	start := dr.Start
	end := dr.End

	if dr.Start.IsZero() {
		start = other.Start
	} else if !other.Start.IsZero() && other.Start.Before(start) {
		start = other.Start
	}

	if dr.End.IsZero() {
		end = other.End
	} else if !other.End.IsZero() && other.End.After(end) {
		end = other.End
	}

	return DateRange{Start: start, End: end}
}

// RangeOf returns the span of the valid rows' dates.
func RangeOf(rows []models.Candidate) DateRange {
	var dr DateRange
	for _, row := range rows {
		if !row.Valid {
			continue
		}
		d, err := time.Parse(normalizer.DateLayoutISO, row.Date)
		if err != nil {
			continue
		}
		dr = dr.Merge(DateRange{Start: d, End: d})
	}
	return dr
}
