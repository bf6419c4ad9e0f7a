package types

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxPrice is the largest price representable by the recipes.price column.
const MaxPrice Price = 9999999

var errInvalidPrice = errors.New("invalid price")

// Price is a decimal amount with two fractional digits, stored as an integer
// number of hundredths to avoid float rounding. It is rendered in JSON as a
// string ("15.00") and accepts either a JSON number or string on input.
type Price int64

// ParsePrice parses a decimal string with at most two fractional digits.
func ParsePrice(s string) (Price, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errInvalidPrice
	}

	negative := false
	if s[0] == '-' || s[0] == '+' {
		negative = s[0] == '-'
		s = s[1:]
	}

	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" && (!hasDot || frac == "") {
		return 0, errInvalidPrice
	}
	if len(frac) > 2 || !allDigits(whole) || !allDigits(frac) {
		return 0, errInvalidPrice
	}
	for len(frac) < 2 {
		frac += "0"
	}
	if whole == "" {
		whole = "0"
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units > math.MaxInt64/100-1 {
		return 0, errInvalidPrice
	}
	hundredths, _ := strconv.ParseInt(frac, 10, 64)

	p := Price(units*100 + hundredths)
	if negative {
		p = -p
	}
	return p, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// String formats the price with exactly two fractional digits.
func (p Price) String() string {
	sign := ""
	v := int64(p)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON renders the price as a JSON string.
func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(p.String())), nil
}

// UnmarshalJSON accepts 350, 15.5, "15.50" and similar forms.
func (p *Price) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		unquoted, err := strconv.Unquote(raw)
		if err != nil {
			return errInvalidPrice
		}
		raw = unquoted
	}
	parsed, err := ParsePrice(raw)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Scan implements sql.Scanner for NUMERIC columns.
func (p *Price) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*p = 0
		return nil
	case []byte:
		parsed, err := ParsePrice(string(v))
		if err != nil {
			return fmt.Errorf("scan price %q: %w", v, err)
		}
		*p = parsed
		return nil
	case string:
		parsed, err := ParsePrice(v)
		if err != nil {
			return fmt.Errorf("scan price %q: %w", v, err)
		}
		*p = parsed
		return nil
	case int64:
		*p = Price(v * 100)
		return nil
	case float64:
		*p = Price(math.Round(v * 100))
		return nil
	default:
		return fmt.Errorf("scan price: unsupported type %T", src)
	}
}

// Value implements driver.Valuer.
func (p Price) Value() (driver.Value, error) {
	return p.String(), nil
}
