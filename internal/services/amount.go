package services

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var rupeePrinter = message.NewPrinter(language.MustParse("en-IN"))

var amountNoise = strings.NewReplacer("₹", "", "/-", "", ",", "", " ", "", "INR", "", "inr", "", "Rs.", "", "Rs", "", "rs.", "", "rs", "")

// ParseAmount reads a price as typed in the quotation form ("26,879/-", "Rs. 1500", "2.5").
func ParseAmount(s string) (float64, bool) {
	clean := amountNoise.Replace(strings.TrimSpace(s))
	if clean == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}

// FormatRupees renders v with Indian digit grouping and the "/-" suffix used on quotations.
func FormatRupees(v float64) string {
	rounded := math.Round(v*100) / 100
	if rounded == math.Trunc(rounded) {
		return rupeePrinter.Sprintf("%d", int64(rounded)) + "/-"
	}
	return rupeePrinter.Sprintf("%.2f", rounded) + "/-"
}

var (
	smallNumbers = []string{"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine", "Ten",
		"Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen", "Sixteen", "Seventeen", "Eighteen", "Nineteen"}
	tensNames = []string{"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety"}
)

// AmountInWords spells v in the Indian numbering system, e.g. 26879 becomes
// "Twenty-Six Thousand Eight Hundred Seventy-Nine".
func AmountInWords(v float64) string {
	rupees := int64(v)
	paise := int64(math.Round((v - float64(rupees)) * 100))
	if paise == 100 {
		rupees++
		paise = 0
	}
	words := spellIndian(rupees)
	if paise > 0 {
		words += " and " + twoDigitWords(paise) + " Paise"
	}
	return words
}

func spellIndian(n int64) string {
	if n == 0 {
		return "Zero"
	}
	var parts []string
	if crore := n / 10000000; crore > 0 {
		parts = append(parts, spellIndian(crore)+" Crore")
	}
	n %= 10000000
	if lakh := n / 100000; lakh > 0 {
		parts = append(parts, twoDigitWords(lakh)+" Lakh")
	}
	n %= 100000
	if thousand := n / 1000; thousand > 0 {
		parts = append(parts, twoDigitWords(thousand)+" Thousand")
	}
	n %= 1000
	if hundred := n / 100; hundred > 0 {
		parts = append(parts, smallNumbers[hundred]+" Hundred")
	}
	if rest := n % 100; rest > 0 {
		parts = append(parts, twoDigitWords(rest))
	}
	return strings.Join(parts, " ")
}

func twoDigitWords(n int64) string {
	if n < 20 {
		return smallNumbers[n]
	}
	word := tensNames[n/10]
	if n%10 != 0 {
		word += "-" + smallNumbers[n%10]
	}
	return word
}
