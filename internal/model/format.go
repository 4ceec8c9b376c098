package model

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.Japanese)

// FormatCount renders v as an integer with thousands separators.
func FormatCount(v float64) string {
	return printer.Sprintf("%d", int64(math.Round(v)))
}

// FormatDecimal renders v with one decimal and thousands separators.
func FormatDecimal(v float64) string {
	return printer.Sprintf("%.1f", v)
}
