// Package numeric coerces the messy textual numbers found in sales exports
// ("1 234,56 грн.", "12,5%") into either a float or an explicit missing
// marker. Parsing is total: bad input degrades to missing, never to an error.
package numeric

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Value is a float64 that may be absent. The zero value is missing.
// It marshals to JSON null when missing, mirroring the nullable columns
// of the source export.
type Value struct {
	F     float64
	Valid bool
}

func Some(f float64) Value {
	return Value{F: f, Valid: true}
}

// None is the missing value.
var None = Value{}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(v.F, 'f', -1, 64)), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*v = Value{}
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*v = Some(f)
	return nil
}

// Options control suffix stripping. Currency suffixes are matched at the
// end of the input; Percent additionally strips a trailing percent sign.
type Options struct {
	CurrencySuffixes []string
	CaseInsensitive  bool
	Percent          bool
}

// Parse normalizes raw text to a finite number or missing. It strips a
// configured trailing currency token, treats comma as the decimal
// separator, and removes embedded whitespace (thousands separators).
// Every input maps to a Value; Parse never fails.
func Parse(raw string, opts Options) Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return None
	}

	for _, suffix := range opts.CurrencySuffixes {
		if suffix == "" || len(s) < len(suffix) {
			continue
		}
		tail := s[len(s)-len(suffix):]
		if tail == suffix || (opts.CaseInsensitive && strings.EqualFold(tail, suffix)) {
			s = strings.TrimSpace(s[:len(s)-len(suffix)])
			break
		}
	}

	if opts.Percent {
		s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	}

	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	s = strings.ReplaceAll(s, ",", ".")

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return None
	}
	return Some(f)
}

// Round2 rounds to two decimal places, half away from zero:
// 2.345 -> 2.35, -2.345 -> -2.35. All displayed percentages and prices
// go through this.
func Round2(f float64) float64 {
	out, _ := decimal.NewFromFloat(f).Round(2).Float64()
	return out
}

// Round0 rounds to a whole number, half away from zero. Used for
// projected revenue figures.
func Round0(f float64) float64 {
	out, _ := decimal.NewFromFloat(f).Round(0).Float64()
	return out
}

// Round2 rounds a present value to two decimals; missing stays missing.
func (v Value) Round2() Value {
	if !v.Valid {
		return None
	}
	return Some(Round2(v.F))
}

// Or returns the value when present, def otherwise.
func (v Value) Or(def float64) float64 {
	if v.Valid {
		return v.F
	}
	return def
}
