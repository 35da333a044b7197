package domain

import (
	"time"

	"github.com/google/uuid"
)

// Category is a two-level classification attached to a transaction.
// It is stored inline with the transaction, not as a reference.
type Category struct {
	Name        string `json:"name"`
	Subcategory string `json:"subcategory,omitempty"`
}

// Transaction is one financial record. Amount sign encodes direction
// (negative = outflow, positive = inflow).
type Transaction struct {
	ID             string    `json:"id"`
	User           string    `json:"user"`
	Source         string    `json:"source"` // e.g. "bank", "credit card"
	Date           time.Time `json:"date"`
	Amount         float64   `json:"amount"`
	Currency       string    `json:"currency"`
	IBAN           string    `json:"iban,omitempty"`
	OtherPartyIBAN string    `json:"other_party_iban,omitempty"`
	OtherParty     string    `json:"other_party,omitempty"`
	Usage          string    `json:"usage"`
	Category       *Category `json:"category,omitempty"`

	// Assigned by the store; zero on values that were never persisted.
	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// Option customizes a transaction built by NewTransaction.
type Option func(*Transaction)

// WithID overrides the generated id.
func WithID(id string) Option {
	return func(t *Transaction) { t.ID = id }
}

func WithIBAN(iban string) Option {
	return func(t *Transaction) { t.IBAN = iban }
}

func WithOtherPartyIBAN(iban string) Option {
	return func(t *Transaction) { t.OtherPartyIBAN = iban }
}

func WithOtherParty(party string) Option {
	return func(t *Transaction) { t.OtherParty = party }
}

func WithCategory(c Category) Option {
	return func(t *Transaction) { t.Category = &c }
}

// GenerateTransactionID returns a fresh random identifier.
func GenerateTransactionID() string {
	return uuid.New().String()
}

// NewTransaction builds a transaction with a freshly generated id unless
// WithID is passed.
func NewTransaction(user, source string, date time.Time, amount float64, currency, usage string, opts ...Option) *Transaction {
	t := &Transaction{
		ID:       GenerateTransactionID(),
		User:     user,
		Source:   source,
		Date:     date,
		Amount:   amount,
		Currency: currency,
		Usage:    usage,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.ID == "" {
		t.ID = GenerateTransactionID()
	}
	return t
}

// NewCategory builds a category; subcategory may be empty.
func NewCategory(name, subcategory string) Category {
	return Category{Name: name, Subcategory: subcategory}
}

// Equal reports whether two categories are structurally equal. Two nil
// categories are equal.
func (c *Category) Equal(other *Category) bool {
	if c == nil || other == nil {
		return c == nil && other == nil
	}
	return c.Name == other.Name && c.Subcategory == other.Subcategory
}

// SameRecord compares the caller-owned fields of two transactions at the
// second granularity the store persists. Store-assigned timestamps are ignored.
func (t *Transaction) SameRecord(other *Transaction) bool {
	if t == nil || other == nil {
		return t == nil && other == nil
	}
	return t.ID == other.ID &&
		t.User == other.User &&
		t.Source == other.Source &&
		t.Date.Unix() == other.Date.Unix() &&
		t.Amount == other.Amount &&
		t.Currency == other.Currency &&
		t.IBAN == other.IBAN &&
		t.OtherPartyIBAN == other.OtherPartyIBAN &&
		t.OtherParty == other.OtherParty &&
		t.Usage == other.Usage &&
		t.Category.Equal(other.Category)
}
