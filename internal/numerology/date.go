package numerology

import (
	"strings"
	"time"
)

// DateLayout is the only accepted birth date format.
const DateLayout = "2006-01-02"

// BirthDate holds the calendar parts of a birth date plus its digit string.
type BirthDate struct {
	Year   int
	Month  int
	Day    int
	Digits string
}

// ParseBirthDate validates dob as a strict YYYY-MM-DD calendar date.
func ParseBirthDate(dob string) (BirthDate, error) {
	if len(dob) != len(DateLayout) {
		return BirthDate{}, &ValidationError{Field: "dob", Value: dob, Reason: "expected YYYY-MM-DD"}
	}
	for i, r := range dob {
		if i == 4 || i == 7 {
			if r != '-' {
				return BirthDate{}, &ValidationError{Field: "dob", Value: dob, Reason: "expected YYYY-MM-DD"}
			}
			continue
		}
		if r < '0' || r > '9' {
			return BirthDate{}, &ValidationError{Field: "dob", Value: dob, Reason: "expected YYYY-MM-DD"}
		}
	}

	t, err := time.Parse(DateLayout, dob)
	if err != nil {
		return BirthDate{}, &ValidationError{Field: "dob", Value: dob, Reason: "not a calendar date"}
	}
	if t.Year() < 1 {
		return BirthDate{}, &ValidationError{Field: "dob", Value: dob, Reason: "year must be positive"}
	}

	return BirthDate{
		Year:   t.Year(),
		Month:  int(t.Month()),
		Day:    t.Day(),
		Digits: strings.ReplaceAll(dob, "-", ""),
	}, nil
}

// DigitSum adds up every digit of the date string.
func (d BirthDate) DigitSum() int {
	sum := 0
	for _, r := range d.Digits {
		sum += int(r - '0')
	}
	return sum
}
