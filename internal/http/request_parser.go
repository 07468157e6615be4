// Package http provides the JSON API server and its handlers.
//
// This file holds helpers for reading query parameters, headers and JSON
// bodies so handlers share one set of validation rules.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"lifedash/internal/core"
	"lifedash/internal/daybucket"
)

const (
	// HeaderTimezone carries the user's IANA zone when the tz query
	// parameter is absent.
	HeaderTimezone = "X-Timezone"

	maxBodyBytes = 1 << 20
)

var (
	ErrMissingTimezone = errors.New("missing timezone: pass ?tz= or the X-Timezone header")
	ErrMalformedBody   = errors.New("malformed request body")
)

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month time.Month
}

// ParseTimezone returns the validated zone from the tz query parameter or
// the X-Timezone header.
func ParseTimezone(r *http.Request) (string, error) {
	tz := strings.TrimSpace(r.URL.Query().Get("tz"))
	if tz == "" {
		tz = strings.TrimSpace(r.Header.Get(HeaderTimezone))
	}
	if tz == "" {
		return "", ErrMissingTimezone
	}
	if err := daybucket.ValidateTimezone(tz); err != nil {
		return "", err
	}
	return tz, nil
}

// ParseMonthParams extracts year and month from the query, defaulting to
// the month containing today. Present but malformed values are an error.
func ParseMonthParams(query url.Values, today core.DayKey) (MonthParams, error) {
	params := MonthParams{Year: today.Year, Month: today.Month}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return MonthParams{}, fmt.Errorf("%w: year %q", core.ErrInvalidMonth, v)
		}
		params.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return MonthParams{}, fmt.Errorf("%w: month %q", core.ErrInvalidMonth, v)
		}
		params.Month = time.Month(m)
	}
	if params.Month < time.January || params.Month > time.December {
		return MonthParams{}, fmt.Errorf("%w: month %d", core.ErrInvalidMonth, int(params.Month))
	}
	return params, nil
}

// ParseDayParam reads a YYYY-MM-DD value, falling back to def when empty.
func ParseDayParam(raw string, def core.DayKey) (core.DayKey, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	return daybucket.ParseDayKey(raw)
}

// DecodeJSON reads a single JSON object into dst. Unknown fields and
// trailing data are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", ErrMalformedBody)
		}
		return fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: unexpected trailing data", ErrMalformedBody)
	}
	return nil
}

// sanitizeInput removes control characters except tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
