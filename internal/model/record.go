package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/birthapp/birthapp-go/internal/apperr"
)

const (
	MinYear = 1900
	MaxYear = 3000
)

// Record is one birthday entry. ID is optional in stored snapshots and is
// backfilled on write.
type Record struct {
	ID        string `json:"id,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Day       int    `json:"day"`
	Month     int    `json:"month"`
	Year      int    `json:"year"`
}

// UnmarshalJSON accepts day, month and year either as numbers or as numeric
// strings; older snapshots stored every field as a string.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        string  `json:"id"`
		FirstName string  `json:"first_name"`
		LastName  string  `json:"last_name"`
		Day       flexInt `json:"day"`
		Month     flexInt `json:"month"`
		Year      flexInt `json:"year"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = Record{
		ID:        raw.ID,
		FirstName: raw.FirstName,
		LastName:  raw.LastName,
		Day:       int(raw.Day),
		Month:     int(raw.Month),
		Year:      int(raw.Year),
	}
	return nil
}

type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}

	s := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid integer %q", s)
	}
	*f = flexInt(n)
	return nil
}

// Normalize trims surrounding whitespace from the name fields.
func (r Record) Normalize() Record {
	r.ID = strings.TrimSpace(r.ID)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	return r
}

// Validate checks the field ranges and that the date exists on the calendar.
func (r Record) Validate() error {
	n := r.Normalize()
	if n.FirstName == "" {
		return apperr.Invalid("first_name", "is required")
	}
	if n.LastName == "" {
		return apperr.Invalid("last_name", "is required")
	}
	if n.Day < 1 || n.Day > 31 {
		return apperr.Invalid("day", "must be 1-31")
	}
	if n.Month < 1 || n.Month > 12 {
		return apperr.Invalid("month", "must be 1-12")
	}
	if n.Year < MinYear || n.Year > MaxYear {
		return apperr.Invalid("year", fmt.Sprintf("must be a realistic year (%d..%d)", MinYear, MaxYear))
	}

	d := time.Date(n.Year, time.Month(n.Month), n.Day, 0, 0, 0, 0, time.UTC)
	if d.Day() != n.Day || int(d.Month()) != n.Month {
		return apperr.Invalid("day", fmt.Sprintf("%04d-%02d-%02d is not a valid date", n.Year, n.Month, n.Day))
	}

	return nil
}

// RecordsResponse is the list payload.
type RecordsResponse struct {
	Data  []Record `json:"data"`
	Count int      `json:"count"`
}

// RecordResponse is the single-record payload.
type RecordResponse struct {
	Index int    `json:"index"`
	Data  Record `json:"data"`
}

// MutationResponse is returned by every successful write.
type MutationResponse struct {
	Data     []Record `json:"data"`
	Count    int      `json:"count"`
	PRURL    string   `json:"pr_url,omitempty"`
	PRNumber int      `json:"pr_number,omitempty"`
	Warning  string   `json:"warning,omitempty"`
}
