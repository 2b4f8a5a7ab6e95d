package alerts

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// percent renders v with exactly two fraction digits.
func percent(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// dollars renders the absolute value of v with thousands separators and at
// most three fraction digits, e.g. 500000000 -> "500,000,000".
func dollars(v float64) string {
	s := decimal.NewFromFloat(math.Abs(v)).Round(3).String()

	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteString(frac)
	return b.String()
}

// plain renders v the shortest way that round-trips.
func plain(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func direction(change float64) string {
	if change > 0 {
		return "increased"
	}
	return "decreased"
}
