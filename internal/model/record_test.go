package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/birthapp/birthapp-go/internal/apperr"
)

func TestRecordValidate(t *testing.T) {
	tests := []struct {
		name      string
		rec       Record
		wantField string
	}{
		{"valid", Record{FirstName: "A", LastName: "B", Day: 15, Month: 6, Year: 1990}, ""},
		{"leap day in leap year", Record{FirstName: "A", LastName: "B", Day: 29, Month: 2, Year: 2020}, ""},
		{"feb 31", Record{FirstName: "A", LastName: "B", Day: 31, Month: 2, Year: 2020}, "day"},
		{"leap day in common year", Record{FirstName: "A", LastName: "B", Day: 29, Month: 2, Year: 2021}, "day"},
		{"april 31", Record{FirstName: "A", LastName: "B", Day: 31, Month: 4, Year: 2000}, "day"},
		{"blank first name", Record{FirstName: "   ", LastName: "B", Day: 1, Month: 1, Year: 2000}, "first_name"},
		{"blank last name", Record{FirstName: "A", LastName: "", Day: 1, Month: 1, Year: 2000}, "last_name"},
		{"day zero", Record{FirstName: "A", LastName: "B", Day: 0, Month: 1, Year: 2000}, "day"},
		{"day too large", Record{FirstName: "A", LastName: "B", Day: 32, Month: 1, Year: 2000}, "day"},
		{"month zero", Record{FirstName: "A", LastName: "B", Day: 1, Month: 0, Year: 2000}, "month"},
		{"month 13", Record{FirstName: "A", LastName: "B", Day: 1, Month: 13, Year: 2000}, "month"},
		{"year too old", Record{FirstName: "A", LastName: "B", Day: 1, Month: 1, Year: 1899}, "year"},
		{"year too far", Record{FirstName: "A", LastName: "B", Day: 1, Month: 1, Year: 3001}, "year"},
		{"year bounds", Record{FirstName: "A", LastName: "B", Day: 31, Month: 12, Year: 3000}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rec.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}

			if !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("Validate() error = %v, want validation error", err)
			}
			var ve *apperr.ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.wantField {
				t.Errorf("Validate() field = %v, want %q", err, tt.wantField)
			}
		})
	}
}

func TestRecordNormalize(t *testing.T) {
	r := Record{FirstName: "  Ada ", LastName: "\tLovelace\n", Day: 10, Month: 12, Year: 1915}.Normalize()
	if r.FirstName != "Ada" || r.LastName != "Lovelace" {
		t.Errorf("Normalize() = %+v", r)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	in := []Record{
		{ID: "a1", FirstName: "Ada", LastName: "Lovelace", Day: 10, Month: 12, Year: 1915},
		{FirstName: "Alan", LastName: "Turing", Day: 23, Month: 6, Year: 1912},
	}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() unexpected error: %v", err)
	}

	var out []Record
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal() unexpected error: %v", err)
	}

	if len(out) != len(in) {
		t.Fatalf("got %d records, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("record %d = %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestRecordUnmarshalLegacyStrings(t *testing.T) {
	data := `{"first_name":"Ada","last_name":"Lovelace","day":"10","month":" 12 ","year":"1915"}`

	var r Record
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		t.Fatalf("Unmarshal() unexpected error: %v", err)
	}
	if r.Day != 10 || r.Month != 12 || r.Year != 1915 {
		t.Errorf("Unmarshal() = %+v", r)
	}
}

func TestRecordUnmarshalRejectsGarbage(t *testing.T) {
	var r Record
	if err := json.Unmarshal([]byte(`{"day":"ten"}`), &r); err == nil {
		t.Error("Unmarshal() expected error for non-numeric day")
	}
}

func TestRecordUnmarshalEmptyFields(t *testing.T) {
	var r Record
	if err := json.Unmarshal([]byte(`{"first_name":"A","day":"","month":null}`), &r); err != nil {
		t.Fatalf("Unmarshal() unexpected error: %v", err)
	}
	if r.Day != 0 || r.Month != 0 {
		t.Errorf("empty fields should decode to zero, got %+v", r)
	}
	if r.Validate() == nil {
		t.Error("Validate() should reject zero day")
	}
}

func TestNormalizeRole(t *testing.T) {
	tests := map[string]string{
		"admin":   RoleAdmin,
		" ADMIN ": RoleAdmin,
		"user":    RoleUser,
		"root":    RoleUser,
		"":        RoleUser,
	}
	for in, want := range tests {
		if got := NormalizeRole(in); got != want {
			t.Errorf("NormalizeRole(%q) = %q, want %q", in, got, want)
		}
	}
}
