package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formatter renders amounts and percentages for a locale.
type Formatter struct {
	printer *message.Printer
	symbol  string
	group   string // thousands separator used past int64 range
}

var maxInt64 = decimal.NewFromInt(math.MaxInt64)

// NewFormatter creates a Formatter for a BCP 47 locale and a currency symbol.
func NewFormatter(locale, symbol string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, eris.Wrapf(err, "report: parse locale %q", locale)
	}
	p := message.NewPrinter(tag)
	group := strings.TrimSuffix(strings.TrimPrefix(p.Sprintf("%d", 1000), "1"), "000")
	return &Formatter{printer: p, symbol: symbol, group: group}, nil
}

// Money rounds to whole units and adds the currency symbol and grouping separators.
func (f *Formatter) Money(v decimal.Decimal) string {
	n := v.Round(0)
	sign := ""
	if n.IsNegative() {
		sign = "-"
		n = n.Neg()
	}
	if n.LessThanOrEqual(maxInt64) {
		return sign + f.symbol + f.printer.Sprintf("%d", n.IntPart())
	}
	return sign + f.symbol + f.groupDigits(n.String())
}

// groupDigits inserts the locale separator every three digits.
func (f *Formatter) groupDigits(digits string) string {
	var b strings.Builder
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteString(f.group)
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// Percent renders v (already a percentage) with the given number of decimals.
func (f *Formatter) Percent(v decimal.Decimal, places int32) string {
	return f.printer.Sprintf(fmt.Sprintf("%%.%df%%%%", places), v.Round(places).InexactFloat64())
}
