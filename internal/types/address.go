package types

import "strings"

type Address struct {
	FullName   string `json:"full_name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// MissingFields returns the names of required address fields that are empty,
// in a stable order suitable for field-level validation messages.
func (a Address) MissingFields() []string {
	var missing []string
	check := func(field, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, field)
		}
	}
	check("full_name", a.FullName)
	check("line1", a.Line1)
	check("city", a.City)
	check("postal_code", a.PostalCode)
	check("country", a.Country)
	return missing
}

func (a Address) IsComplete() bool {
	return len(a.MissingFields()) == 0
}

func (a Address) IsZero() bool {
	return a == (Address{})
}
