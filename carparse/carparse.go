// Package carparse normalizes loosely typed car records and orders them by
// model year. It is the reference workload behind the parseJson entry point
// of every bundled parser module.
package carparse

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// YearLayout is the date format of the Year field.
const YearLayout = "2006-01-02"

// OriginPrefix is prepended to every decoded origin.
const OriginPrefix = "Country: "

// Car is one normalized record.
type Car struct {
	Name           string       `json:"Name,omitempty"`
	MilesPerGallon float64      `json:"Miles_per_Gallon,omitempty"`
	Displacement   Displacement `json:"Displacement"`
	Horsepower     int          `json:"Horsepower"`
	WeightInLbs    int          `json:"Weight_in_lbs"`
	Cylinders      int          `json:"Cylinders"`
	Year           Year         `json:"Year"`
	Origin         Origin       `json:"Origin,omitempty"`
	Acceleration   Acceleration `json:"Acceleration"`
}

// Acceleration accepts integers as-is. Any other value (a fraction or a
// quoted string) keeps only its decimal digits, so 19.4 becomes 194.
type Acceleration int

// UnmarshalJSON implements json.Unmarshaler.
func (a *Acceleration) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		return nil
	}

	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*a = Acceleration(n)
		return nil
	}

	*a = Acceleration(digits(string(b)))

	return nil
}

// Displacement accepts a number or a quoted number. Unparsable values
// decode as zero.
type Displacement int

// UnmarshalJSON implements json.Unmarshaler.
func (d *Displacement) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)

	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}

	*d = Displacement(n)

	return nil
}

// Origin is a country name carrying OriginPrefix.
type Origin string

// UnmarshalJSON implements json.Unmarshaler.
func (o *Origin) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		return nil
	}

	var s string
	_ = json.Unmarshal(b, &s)

	*o = Origin(OriginPrefix + s)

	return nil
}

// Year is a model year. Missing or malformed dates decode to the zero time
// and therefore sort first.
type Year struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (y *Year) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		y.Time = time.Time{}
		return nil
	}

	t, err := time.Parse(YearLayout, s)
	if err != nil {
		t = time.Time{}
	}

	y.Time = t

	return nil
}

// Decode reads a JSON array of car records.
func Decode(data []byte) ([]Car, error) {
	var cars []Car
	if err := json.Unmarshal(data, &cars); err != nil {
		return nil, fmt.Errorf("decode cars: %w", err)
	}

	return cars, nil
}

// Sort orders cars by year, then horsepower, then name. Equal records keep
// their input order.
func Sort(cars []Car) {
	slices.SortStableFunc(cars, func(a, b Car) int {
		if c := a.Year.Compare(b.Year.Time); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Horsepower, b.Horsepower); c != 0 {
			return c
		}

		return strings.Compare(a.Name, b.Name)
	})
}

// Parse decodes, sorts and re-encodes a JSON array of car records.
func Parse(input string) (string, error) {
	cars, err := Decode([]byte(input))
	if err != nil {
		return "", err
	}

	Sort(cars)

	if cars == nil {
		cars = []Car{}
	}

	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(cars); err != nil {
		return "", fmt.Errorf("encode cars: %w", err)
	}

	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Dispatch routes an entry point name to its implementation. It has the
// shape of harness.NativeFunc.
func Dispatch(entryPoint, input string) (string, error) {
	switch entryPoint {
	case EntryParseJSON:
		return Parse(input)
	default:
		return "", fmt.Errorf("no entry point %q", entryPoint)
	}
}

// EntryParseJSON is the entry point name exposed by the parser modules.
const EntryParseJSON = "parseJson"

func digits(s string) int {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}

	n, _ := strconv.Atoi(b.String())

	return n
}

func isNull(b []byte) bool {
	return string(bytes.TrimSpace(b)) == "null"
}
