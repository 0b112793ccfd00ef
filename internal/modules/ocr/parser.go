package ocr

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// An item line ends with a price, optionally followed by a short tax code.
	pricedLine = regexp.MustCompile(`^(.*?)\s+[$€£]?(-?\d+[.,]\d{2})(?:\s+[A-Z*]{1,2})?$`)
	// Leading quantities such as "2 x", "2x" or "3 @".
	quantityPrefix = regexp.MustCompile(`^(\d{1,3})\s*[xX*@]\s*(.+)$`)
)

// Words that make up totals, payment and footer lines. A line is dropped only
// when every word on it is one of these, so products such as "Credit Crunch" are kept.
var nonItemWords = map[string]bool{
	"total": true, "subtotal": true, "sub": true, "tax": true, "vat": true, "sales": true,
	"change": true, "cash": true, "card": true, "visa": true, "mastercard": true, "amex": true,
	"debit": true, "credit": true, "balance": true, "due": true, "amount": true, "paid": true,
	"tendered": true, "payment": true, "discount": true, "savings": true, "you": true,
	"saved": true, "receipt": true, "invoice": true, "rounding": true,
}

// ParseReceipt extracts product candidates from recognised receipt text.
// Only priced lines are considered; totals and payment lines are dropped and
// names are de-duplicated case-insensitively.
func ParseReceipt(raw string) []Candidate {
	candidates := []Candidate{}
	seen := make(map[string]bool)
	for _, line := range strings.Split(raw, "\n") {
		c, ok := parseLine(line)
		if !ok {
			continue
		}
		key := strings.ToLower(c.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		candidates = append(candidates, c)
	}
	return candidates
}

func parseLine(line string) (Candidate, bool) {
	line = strings.Join(strings.Fields(line), " ")
	m := pricedLine.FindStringSubmatch(line)
	if m == nil {
		return Candidate{}, false
	}
	name, priceText := m[1], m[2]

	quantity := 1
	if q := quantityPrefix.FindStringSubmatch(name); q != nil {
		n, err := strconv.Atoi(q[1])
		if err == nil && n > 0 {
			quantity = n
			name = q[2]
		}
	}

	name = strings.TrimSpace(strings.Trim(name, "-*.:#"))
	if !looksLikeProduct(name) {
		return Candidate{}, false
	}

	price := decimal.NullDecimal{}
	if d, err := decimal.NewFromString(strings.Replace(priceText, ",", ".", 1)); err == nil {
		price = decimal.NewNullDecimal(d)
	}
	// Casers keep state, so one per line.
	return Candidate{Name: cases.Title(language.English).String(name), Quantity: quantity, Price: price}, true
}

func looksLikeProduct(name string) bool {
	letters := 0
	for _, r := range name {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if letters < 2 {
		return false
	}
	words := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool { return !unicode.IsLetter(r) })
	for _, w := range words {
		if !nonItemWords[w] {
			return true
		}
	}
	return false
}
