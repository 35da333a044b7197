package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// SearchFilter narrows a search. Every non-empty field adds one AND-ed
// predicate; the zero value matches everything.
type SearchFilter struct {
	User         string     `json:"user,omitempty"`
	CategoryName string     `json:"categoryName,omitempty"`
	Subcategory  string     `json:"subcategory,omitempty"`
	Source       string     `json:"source,omitempty"`
	StartDate    *time.Time `json:"startDate,omitempty"`
	EndDate      *time.Time `json:"endDate,omitempty"`
	MinAmount    *float64   `json:"minAmount,omitempty"`
	MaxAmount    *float64   `json:"maxAmount,omitempty"`

	// SearchText is a case-insensitive substring match on usage or other party.
	SearchText string `json:"searchText,omitempty"`
}

// Page is one slice of the date-descending transaction list.
type Page struct {
	Items      []*Transaction `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	TotalPages int            `json:"totalPages"`
}

type transactionAlias Transaction

// UnmarshalJSON accepts dates as RFC 3339 text, date-only text, or epoch
// seconds/milliseconds.
func (t *Transaction) UnmarshalJSON(b []byte) error {
	aux := struct {
		*transactionAlias
		Date      any `json:"date"`
		CreatedAt any `json:"created_at"`
		UpdatedAt any `json:"updated_at"`
	}{transactionAlias: (*transactionAlias)(t)}

	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	var err error
	if t.Date, err = decodeDate(aux.Date); err != nil {
		return fmt.Errorf("transaction date: %w", err)
	}
	if t.CreatedAt, err = decodeDate(aux.CreatedAt); err != nil {
		return fmt.Errorf("transaction created_at: %w", err)
	}
	if t.UpdatedAt, err = decodeDate(aux.UpdatedAt); err != nil {
		return fmt.Errorf("transaction updated_at: %w", err)
	}
	return nil
}

type searchFilterAlias SearchFilter

// UnmarshalJSON accepts the same date shapes as Transaction.
func (f *SearchFilter) UnmarshalJSON(b []byte) error {
	aux := struct {
		*searchFilterAlias
		StartDate any `json:"startDate"`
		EndDate   any `json:"endDate"`
	}{searchFilterAlias: (*searchFilterAlias)(f)}

	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	var err error
	if f.StartDate, err = decodeOptionalDate(aux.StartDate); err != nil {
		return fmt.Errorf("filter startDate: %w", err)
	}
	if f.EndDate, err = decodeOptionalDate(aux.EndDate); err != nil {
		return fmt.Errorf("filter endDate: %w", err)
	}
	return nil
}

func decodeDate(v any) (time.Time, error) {
	if v == nil {
		return time.Time{}, nil
	}
	if s, ok := v.(string); ok && s == "" {
		return time.Time{}, nil
	}
	return ParseDate(v)
}

func decodeOptionalDate(v any) (*time.Time, error) {
	d, err := decodeDate(v)
	if err != nil || d.IsZero() {
		return nil, err
	}
	return &d, nil
}
