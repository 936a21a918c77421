package transaction

import (
	"time"

	"github.com/shopspring/decimal"

	"kosh/internal/smsparser"
)

// Direction tells whether a transaction decreases or increases the balance.
type Direction string

const (
	DirectionExpense Direction = "expense"
	DirectionIncome  Direction = "income"
)

func (d Direction) Valid() bool {
	return d == DirectionExpense || d == DirectionIncome
}

// Transaction is a single expense or income record. Tag references are
// optional; FromSMS marks records captured by the ingestion pipeline, which
// also retains the original message body for audit.
type Transaction struct {
	ID              string          `json:"id"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description"`
	Date            time.Time       `json:"date"`
	Direction       Direction       `json:"direction"`
	PayeeID         *string         `json:"payee_id,omitempty"`
	CategoryID      *string         `json:"category_id,omitempty"`
	PaymentMethodID *string         `json:"payment_method_id,omitempty"`
	StatusID        *string         `json:"status_id,omitempty"`
	FromSMS         bool            `json:"from_sms"`
	SMSBody         string          `json:"sms_body,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// WithTags is a transaction joined with the names of its referenced tags.
type WithTags struct {
	Transaction
	PayeeName         *string `json:"payee_name,omitempty"`
	CategoryName      *string `json:"category_name,omitempty"`
	PaymentMethodName *string `json:"payment_method_name,omitempty"`
	StatusName        *string `json:"status_name,omitempty"`
}

// Filter narrows a transaction query. Nil fields are ignored.
type Filter struct {
	Direction       *Direction
	From            *time.Time
	To              *time.Time
	PayeeID         *string
	CategoryID      *string
	PaymentMethodID *string
	StatusID        *string
}

// CategoryTotal is one row of the expenses-by-category summary.
type CategoryTotal struct {
	CategoryID   *string         `json:"category_id"`
	CategoryName *string         `json:"category_name,omitempty"`
	Total        decimal.Decimal `json:"total"`
}

// Summary aggregates totals over a date range.
type Summary struct {
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	TotalIncome   decimal.Decimal `json:"total_income"`
	Balance       decimal.Decimal `json:"balance"`
	ByCategory    []CategoryTotal `json:"by_category"`
}

type CreateTransactionRequest struct {
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	Description     string          `json:"description" binding:"required"`
	Date            time.Time       `json:"date" binding:"required"`
	Direction       Direction       `json:"direction" binding:"required"`
	PayeeID         *string         `json:"payee_id"`
	CategoryID      *string         `json:"category_id"`
	PaymentMethodID *string         `json:"payment_method_id"`
	StatusID        *string         `json:"status_id"`
}

type UpdateTransactionRequest struct {
	Amount          *decimal.Decimal `json:"amount"`
	Description     *string          `json:"description"`
	Date            *time.Time       `json:"date"`
	Direction       *Direction       `json:"direction"`
	PayeeID         *string          `json:"payee_id"`
	CategoryID      *string          `json:"category_id"`
	PaymentMethodID *string          `json:"payment_method_id"`
	StatusID        *string          `json:"status_id"`
}

// FromParsed materializes a transaction record from a parsed SMS, keeping
// the original message text and stamping the record as SMS-originated.
func FromParsed(parsed *smsparser.ParsedTransaction) Transaction {
	direction := DirectionExpense
	if parsed.Direction == smsparser.DirectionIncome {
		direction = DirectionIncome
	}

	return Transaction{
		Amount:      parsed.Amount,
		Description: smsparser.BuildDescription(parsed),
		Date:        time.UnixMilli(parsed.Timestamp),
		Direction:   direction,
		FromSMS:     true,
		SMSBody:     parsed.SourceText,
	}
}
