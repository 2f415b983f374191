package rating

import (
	"strconv"
	"strings"
)

// minModelYear bounds the leading year token. Anything outside
// [minModelYear, maxYear] is treated as make/model text instead.
const minModelYear = 1990

// Vehicle is the structured form of a free-text vehicle description
// such as "2021 Honda Accord".
type Vehicle struct {
	Year  int    `json:"year,omitempty"`
	Make  string `json:"make,omitempty"`
	Model string `json:"model,omitempty"`
}

// ParseVehicle splits free text into year, make, and model. maxYear is
// the newest accepted model year, normally the next calendar year.
func ParseVehicle(text string, maxYear int) Vehicle {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Vehicle{}
	}

	// A numeric lead token is consumed either way; out-of-range years
	// are dropped rather than mistaken for a make.
	var v Vehicle
	if year, err := strconv.Atoi(fields[0]); err == nil {
		if year >= minModelYear && year <= maxYear {
			v.Year = year
		}
		fields = fields[1:]
	}
	if len(fields) == 0 {
		return v
	}

	// Two-word marques like "Land Rover" parse as a single make.
	if len(fields) >= 2 {
		two := fields[0] + " " + fields[1]
		if _, ok := makeFactors[strings.ToLower(two)]; ok {
			v.Make = two
			v.Model = strings.Join(fields[2:], " ")
			return v
		}
	}

	v.Make = fields[0]
	v.Model = strings.Join(fields[1:], " ")
	return v
}
