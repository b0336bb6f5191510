// Package etl loads historical clinic exports into the store.
package etl

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Bezalel011/Smartcare/models"
)

const usedSuffix = "_used"

// Sink is the write side the loader needs.
type Sink interface {
	UpsertVisit(ctx context.Context, v models.VisitDaily) error
	UpsertDemand(ctx context.Context, d models.DemandDaily) error
}

type Stats struct {
	Rows       int
	Visits     int
	DemandRows int
	Items      []string
}

// Loader reads the wide daily export: one row per day with visit counts,
// weather and one "<item>_used" column per supply item. A facility_id
// column, when present, overrides DefaultFacility.
type Loader struct {
	DefaultFacility string
}

type layout struct {
	date     int
	facility int
	visits   int
	optInt   map[string]int
	optFloat map[string]int
	items    map[string]int
}

var (
	intColumns   = []string{"male_patients", "female_patients", "children_under5"}
	floatColumns = []string{"temperature", "rainfall", "humidity"}
)

func readLayout(header []string) (*layout, error) {
	l := &layout{date: -1, facility: -1, visits: -1, optInt: map[string]int{}, optFloat: map[string]int{}, items: map[string]int{}}
	for i, raw := range header {
		col := strings.ToLower(strings.TrimSpace(raw))
		switch {
		case col == "date":
			l.date = i
		case col == "facility_id":
			l.facility = i
		case col == "total_visits" || col == "total_patients":
			l.visits = i
		case strings.HasSuffix(col, usedSuffix) && len(col) > len(usedSuffix):
			l.items[strings.TrimSuffix(col, usedSuffix)] = i
		}
		for _, c := range intColumns {
			if col == c {
				l.optInt[c] = i
			}
		}
		for _, c := range floatColumns {
			if col == c {
				l.optFloat[c] = i
			}
		}
	}
	if l.date < 0 {
		return nil, errors.New("CSV header has no date column")
	}
	if l.visits < 0 {
		return nil, errors.New("CSV header has no total_visits or total_patients column")
	}
	return l, nil
}

// Load streams r into sink and reports what was written. Blank optional
// cells are stored as NULL; a blank usage cell is skipped.
func (ld Loader) Load(ctx context.Context, r io.Reader, sink Sink) (*Stats, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	l, err := readLayout(header)
	if err != nil {
		return nil, err
	}

	stats := &Stats{}
	for code := range l.items {
		stats.Items = append(stats.Items, code)
	}

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return stats, fmt.Errorf("CSV row %d: %w", line, err)
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		facility := ld.DefaultFacility
		if l.facility >= 0 && strings.TrimSpace(record[l.facility]) != "" {
			facility = strings.TrimSpace(record[l.facility])
		}
		if facility == "" {
			return stats, fmt.Errorf("CSV row %d: no facility_id", line)
		}

		visit, err := parseVisit(l, record)
		if err != nil {
			return stats, fmt.Errorf("CSV row %d: %w", line, err)
		}
		visit.FacilityID = facility
		if err := sink.UpsertVisit(ctx, visit); err != nil {
			return stats, fmt.Errorf("CSV row %d: store visit: %w", line, err)
		}
		stats.Visits++

		for code, idx := range l.items {
			cell := strings.TrimSpace(record[idx])
			if cell == "" {
				continue
			}
			used, err := parseCount(cell)
			if err != nil {
				return stats, fmt.Errorf("CSV row %d: %s%s: %w", line, code, usedSuffix, err)
			}
			if err := sink.UpsertDemand(ctx, models.DemandDaily{Date: visit.Date, FacilityID: facility, ItemCode: code, UnitsUsed: used}); err != nil {
				return stats, fmt.Errorf("CSV row %d: store demand %s: %w", line, code, err)
			}
			stats.DemandRows++
		}
		stats.Rows++
	}
	return stats, nil
}

func parseVisit(l *layout, record []string) (models.VisitDaily, error) {
	var v models.VisitDaily
	date, err := parseDate(record[l.date])
	if err != nil {
		return v, err
	}
	v.Date = date

	total, err := parseCount(record[l.visits])
	if err != nil {
		return v, fmt.Errorf("total visits: %w", err)
	}
	v.TotalVisits = total

	ints := map[string]**int{
		"male_patients":   &v.MalePatients,
		"female_patients": &v.FemalePatients,
		"children_under5": &v.ChildrenUnder5,
	}
	for col, idx := range l.optInt {
		cell := strings.TrimSpace(record[idx])
		if cell == "" {
			continue
		}
		n, err := parseCount(cell)
		if err != nil {
			return v, fmt.Errorf("%s: %w", col, err)
		}
		*ints[col] = &n
	}

	floats := map[string]**float64{
		"temperature": &v.Temperature,
		"rainfall":    &v.Rainfall,
		"humidity":    &v.Humidity,
	}
	for col, idx := range l.optFloat {
		cell := strings.TrimSpace(record[idx])
		if cell == "" {
			continue
		}
		f, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return v, fmt.Errorf("%s: %w", col, err)
		}
		*floats[col] = &f
	}
	return v, nil
}

// parseDate accepts YYYY-MM-DD with an optional time part.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) >= len(time.DateOnly) {
		if d, err := time.Parse(time.DateOnly, s[:len(time.DateOnly)]); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// parseCount reads a non-negative count. Exports sometimes write counts
// as floats ("12.0").
func parseCount(s string) (int, error) {
	s = strings.TrimSpace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid count %q", s)
	}
	if f < 0 || f != float64(int(f)) {
		return 0, fmt.Errorf("count must be a non-negative integer, got %q", s)
	}
	return int(f), nil
}
