package util

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	reCurrency     = regexp.MustCompile(`[£$€¥]`)
	reThousandDots = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+$`)
	reThousandComs = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+$`)
)

// ParseMoney converts a monetary token as found in invoice text into a
// decimal. Currency symbols, grouping spaces and thousands separators are
// stripped first. Returns false instead of an error: an unparsable amount is
// an extraction gap, not a failure.
func ParseMoney(token string) (decimal.Decimal, bool) {
	cleaned := NormalizeNumericToken(StripCurrency(token))
	if cleaned == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func StripCurrency(token string) string {
	return strings.TrimSpace(reCurrency.ReplaceAllString(token, ""))
}

// NormalizeNumericToken rewrites locale-formatted numbers into a plain
// decimal string: "1,234.56" -> "1234.56", "1.000" -> "1000", "1 000" ->
// "1000", "1,5" -> "1.5".
func NormalizeNumericToken(token string) string {
	compact := strings.ReplaceAll(token, " ", "")
	compact = strings.ReplaceAll(compact, " ", "")
	if reThousandDots.MatchString(compact) {
		return strings.ReplaceAll(compact, ".", "")
	}
	if reThousandComs.MatchString(compact) {
		return strings.ReplaceAll(compact, ",", "")
	}
	if strings.Contains(compact, ",") && strings.Contains(compact, ".") {
		return strings.ReplaceAll(compact, ",", "")
	}
	if strings.Contains(compact, ",") {
		return strings.ReplaceAll(compact, ",", ".")
	}
	return compact
}
