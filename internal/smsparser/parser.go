// Package smsparser extracts structured transaction data from free-form
// bank notification SMS text. All functions are pure and safe for
// concurrent use; identical input always yields identical output.
package smsparser

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Direction tells whether a transaction decreases or increases the balance.
type Direction string

const (
	DirectionExpense Direction = "expense"
	DirectionIncome  Direction = "income"
)

// ParsedTransaction is the result of a successful parse. Amount is always
// positive and PaymentMethod is never empty; Merchant and CardInfo are nil
// when no pattern matched.
type ParsedTransaction struct {
	Amount        decimal.Decimal
	Direction     Direction
	Merchant      *string
	CardInfo      *string
	PaymentMethod string
	SourceText    string
	Timestamp     int64
}

const maxMerchantLen = 50

// Parse extracts a transaction from an SMS body. It returns nil when no
// amount can be found, which is the expected outcome for the majority of
// messages; every other field degrades gracefully to a default or nil.
func Parse(text string, timestamp int64) *ParsedTransaction {
	body := strings.TrimSpace(text)

	amount, ok := extractAmount(body)
	if !ok {
		return nil
	}

	direction := classifyDirection(body)
	merchant := extractMerchant(body)
	cardInfo := extractCardInfo(body)
	paymentMethod := detectPaymentMethod(body, cardInfo)

	return &ParsedTransaction{
		Amount:        amount,
		Direction:     direction,
		Merchant:      merchant,
		CardInfo:      cardInfo,
		PaymentMethod: paymentMethod,
		SourceText:    body,
		Timestamp:     timestamp,
	}
}

// extractAmount tries each amount pattern in priority order. A matched
// numeral that fails to parse, or is not positive, counts as a miss for
// that pattern and the next one is tried.
func extractAmount(body string) (decimal.Decimal, bool) {
	for _, pattern := range amountPatterns {
		m := pattern.FindStringSubmatch(body)
		if m == nil {
			continue
		}

		// Commas are grouping only; stripping them handles both western
		// and Indian-style grouping (1,00,000.00).
		numeral := strings.ReplaceAll(m[1], ",", "")
		amount, err := decimal.NewFromString(numeral)
		if err != nil {
			continue
		}
		if !amount.IsPositive() {
			continue
		}
		return amount, true
	}
	return decimal.Decimal{}, false
}

// classifyDirection counts debit and credit signal keywords by containment,
// each at most once. Ties and keyword-free messages default to expense.
func classifyDirection(body string) Direction {
	lower := strings.ToLower(body)

	debitScore := 0
	for _, kw := range debitKeywords {
		if strings.Contains(lower, kw) {
			debitScore++
		}
	}

	creditScore := 0
	for _, kw := range creditKeywords {
		if strings.Contains(lower, kw) {
			creditScore++
		}
	}

	if creditScore > debitScore {
		return DirectionIncome
	}
	return DirectionExpense
}

func extractMerchant(body string) *string {
	for _, pattern := range merchantPatterns {
		m := pattern.FindStringSubmatch(body)
		if m == nil {
			continue
		}

		merchant := strings.TrimSpace(m[1])
		if len(merchant) < 2 {
			continue
		}
		if len(merchant) > maxMerchantLen {
			merchant = merchant[:maxMerchantLen]
		}
		return &merchant
	}
	return nil
}

func extractCardInfo(body string) *string {
	for _, pattern := range cardPatterns {
		m := pattern.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		masked := "xxxx" + m[1]
		return &masked
	}
	return nil
}

// detectPaymentMethod picks a payment method label; the first matching
// branch wins and the final fallback is never empty.
func detectPaymentMethod(body string, cardInfo *string) string {
	upper := strings.ToUpper(body)

	switch {
	case upiPattern.MatchString(body):
		return "UPI"
	case strings.Contains(upper, "CREDIT CARD") || strings.Contains(upper, "CC "):
		switch {
		case strings.Contains(upper, "VISA"):
			return "Visa Credit Card"
		case strings.Contains(upper, "MASTER"):
			return "Master Credit Card"
		default:
			return "Credit Card"
		}
	case strings.Contains(upper, "DEBIT CARD") || strings.Contains(upper, "DC "):
		return "Debit Card"
	case strings.Contains(upper, "NET BANKING") || strings.Contains(upper, "NETBANKING"):
		return "Net Banking"
	case strings.Contains(upper, "WALLET"):
		return "Wallet"
	case cardInfo != nil:
		return "Card"
	default:
		return "Other"
	}
}

// BuildDescription renders the display description for a parsed
// transaction: the merchant name when one was found, otherwise a direction
// label, with the masked card appended in parentheses when present.
func BuildDescription(parsed *ParsedTransaction) string {
	var b strings.Builder

	if parsed.Merchant != nil {
		b.WriteString(*parsed.Merchant)
	} else if parsed.Direction == DirectionExpense {
		b.WriteString("Expense")
	} else {
		b.WriteString("Income")
	}

	if parsed.CardInfo != nil {
		b.WriteString(" (")
		b.WriteString(*parsed.CardInfo)
		b.WriteString(")")
	}

	return b.String()
}
