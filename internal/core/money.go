// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing Brazilian-real amounts typed by
// users or read from spreadsheets.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts user input into a non-negative amount rounded to cents.
//
// It strips an optional "R$" symbol and accepts both decimal separators.
// When both "." and "," appear, the last one is the decimal separator and the
// other is a thousands separator. Without a comma, dots that split the digits
// into groups of three are thousands separators, so "1.000" is one thousand.
//
// Examples:
//
//	ParseAmount("150")        -> 150.00
//	ParseAmount("150,5")      -> 150.50
//	ParseAmount("R$ 1.234,56") -> 1234.56
//	ParseAmount("1,234.56")   -> 1234.56
//	ParseAmount("1.000")      -> 1000.00
//	ParseAmount("0.500")      -> 0.50
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			return decimal.Zero, ErrInvalidAmount
		}
		s = strings.Replace(s, ",", ".", 1)
	case lastDot >= 0 && thousandsGrouped(s):
		s = strings.ReplaceAll(s, ".", "")
	}
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return decimal.Zero, ErrInvalidAmount
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d.Round(2), nil
}

// thousandsGrouped reports whether dots split s into groups of exactly three
// digits after a non-zero leading group, as in "1.000" or "12.500.000".
func thousandsGrouped(s string) bool {
	groups := strings.Split(s, ".")
	if len(groups[0]) == 0 || len(groups[0]) > 3 || groups[0][0] == '0' {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return false
		}
	}
	return true
}

// FormatReais renders an amount as "R$ 1.234,56".
func FormatReais(d decimal.Decimal) string {
	neg := d.IsNegative()
	s := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := "R$ " + b.String() + "," + frac
	if neg {
		return "-" + out
	}
	return out
}
