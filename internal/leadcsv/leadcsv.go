// Package leadcsv reads lead records from CSV exports for bulk import.
package leadcsv

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/alohacamp/leadcheck/internal/model"
)

// columnAliases maps normalized CSV header names to lead fields.
// Header matching is case-insensitive and ignores spaces.
var columnAliases = map[string]string{
	"email":             "email",
	"e-mail":            "email",
	"phone":             "phone",
	"phonenumber":       "phone",
	"firstname":         "first_name",
	"first_name":        "first_name",
	"lastname":          "last_name",
	"last_name":         "last_name",
	"company":           "company",
	"companyname":       "company",
	"propertyname":      "property_name",
	"property_name":     "property_name",
	"property":          "property_name",
	"city":              "city",
	"country":           "country",
	"zerobounce_status": "zerobounce_status",
	"zerobouncestatus":  "zerobounce_status",
	"emailstatus":       "zerobounce_status",
}

// ReadFile parses a CSV file into leads. The first row must be a
// header containing at least an email column. Rows without an email
// and rows repeating an already-seen email are skipped.
func ReadFile(path string) ([]model.Lead, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "leadcsv: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	return Read(f)
}

// Read parses CSV data into leads.
func Read(r io.Reader) ([]model.Lead, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "leadcsv: read csv")
	}
	if len(records) < 2 {
		return nil, nil // header only or empty
	}

	fields := mapHeaders(records[0])
	if _, ok := fields["email"]; !ok {
		return nil, eris.New("leadcsv: no email column in header")
	}

	seen := make(map[string]struct{})
	var leads []model.Lead
	for _, row := range records[1:] {
		lead := mapRow(fields, row)
		email := strings.ToLower(strings.TrimSpace(lead.Email))
		if email == "" {
			continue
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		lead.Email = email
		leads = append(leads, lead)
	}
	return leads, nil
}

// mapHeaders resolves header names to field keys and their column index.
func mapHeaders(headers []string) map[string]int {
	fields := make(map[string]int)
	for i, h := range headers {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "")
		if field, ok := columnAliases[key]; ok {
			if _, taken := fields[field]; !taken {
				fields[field] = i
			}
		}
	}
	return fields
}

func mapRow(fields map[string]int, row []string) model.Lead {
	get := func(field string) string {
		idx, ok := fields[field]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	return model.Lead{
		Email:            get("email"),
		Phone:            get("phone"),
		FirstName:        get("first_name"),
		LastName:         get("last_name"),
		Company:          get("company"),
		PropertyName:     get("property_name"),
		City:             get("city"),
		Country:          get("country"),
		ZerobounceStatus: get("zerobounce_status"),
	}
}
