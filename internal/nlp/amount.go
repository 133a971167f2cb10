package nlp

import (
	"regexp"
	"strconv"
	"strings"
)

var amountPattern = regexp.MustCompile(`(\d[\d,]*)\s*(جنيه|الف|ألف|مليون|[kKmM])`)

// Amount units as they appear in normalized amount strings.
const (
	unitThousand = "ألف"
	unitMillion  = "مليون"
	unitPound    = "جنيه"
)

// ParseAmount finds the first money amount in raw text and returns it in normalized
// form: "<digits> ألف جنيه", "<digits> مليون جنيه" or "<digits> جنيه". Thousands
// separators are removed. A Latin k or m counts as a unit only when no Latin letter
// follows it. ok is false when text holds no amount.
func ParseAmount(text string) (amount string, ok bool) {
	amounts := findAmounts(text, 1)
	if len(amounts) == 0 {
		return "", false
	}
	return amounts[0], true
}

// FindAmounts returns every money amount in raw text, normalized, in text order.
func FindAmounts(text string) []string {
	return findAmounts(text, -1)
}

func findAmounts(text string, limit int) []string {
	var out []string
	for _, m := range amountPattern.FindAllStringSubmatchIndex(text, -1) {
		digits := strings.ReplaceAll(text[m[2]:m[3]], ",", "")
		unit := text[m[4]:m[5]]
		if isLatinUnit(unit) && m[5] < len(text) && isLatinLetter(text[m[5]]) {
			continue
		}
		out = append(out, formatAmount(digits, unit))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func formatAmount(digits, unit string) string {
	switch strings.ToLower(unit) {
	case "k", "الف", "ألف":
		return digits + " " + unitThousand + " " + unitPound
	case "m", "مليون":
		return digits + " " + unitMillion + " " + unitPound
	}
	return digits + " " + unitPound
}

// AmountValue converts a normalized amount string into pounds. Strings without a
// recognized unit are read as a plain number. ok is false when no digits are present.
func AmountValue(amount string) (value int64, ok bool) {
	m := leadingNumber.FindString(amount)
	if m == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(m, ",", ""), 10, 64)
	if err != nil {
		return 0, false
	}
	switch {
	case strings.Contains(amount, unitMillion):
		n *= 1_000_000
	case strings.Contains(amount, unitThousand), strings.Contains(amount, "الف"):
		n *= 1_000
	}
	return n, true
}

var leadingNumber = regexp.MustCompile(`\d[\d,]*`)

func isLatinUnit(unit string) bool {
	return len(unit) == 1
}

func isLatinLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
