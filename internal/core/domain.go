package core

import (
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

// DemoOwnerID is the distinguished identity whose records never leave the
// local store, regardless of remote configuration.
const DemoOwnerID = "demo-user"

type (
	Kind string

	// Transaction is a single income or expense record within one owner scope.
	Transaction struct {
		ID        string  `json:"id"`
		Title     string  `json:"title"`
		Amount    float64 `json:"amount"`
		Kind      Kind    `json:"kind"`
		Category  string  `json:"category"`
		Date      string  `json:"date"`
		Note      string  `json:"note,omitempty"`
		CreatedAt string  `json:"createdAt,omitempty"`
	}

	// Input carries raw user-supplied field values before cleaning.
	// Amount arrives as text because it comes straight from a form field.
	Input struct {
		Title    string `json:"title"`
		Amount   string `json:"amount"`
		Kind     string `json:"kind"`
		Category string `json:"category"`
		Date     string `json:"date"`
		Note     string `json:"note"`
	}

	// Fields is the cleaned, storable portion of a transaction.
	Fields struct {
		Title    string
		Amount   float64
		Kind     Kind
		Category string
		Date     string
		Note     string
	}

	// Filter narrows the table view. The zero value matches everything.
	Filter struct {
		Query    string
		Kind     string // "all", "income" or "expense"; empty means all
		Category string // "all" or an exact category; empty means all
	}
)

var ErrNotFound = errors.New("transaction not found")

// CleanInput normalises raw input into storable fields. An unparseable
// amount becomes 0 rather than an error; availability is preferred over
// strict validation here, and callers surface the zero to the user.
func CleanInput(in Input) Fields {
	amount, err := strconv.ParseFloat(strings.TrimSpace(in.Amount), 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}

	kind := Expense
	if in.Kind == string(Income) {
		kind = Income
	}

	return Fields{
		Title:    strings.TrimSpace(in.Title),
		Amount:   amount,
		Kind:     kind,
		Category: strings.TrimSpace(in.Category),
		Date:     in.Date,
		Note:     strings.TrimSpace(in.Note),
	}
}

// Apply copies cleaned fields onto a transaction, leaving ID and
// CreatedAt untouched.
func (f Fields) Apply(tx Transaction) Transaction {
	tx.Title = f.Title
	tx.Amount = f.Amount
	tx.Kind = f.Kind
	tx.Category = f.Category
	tx.Date = f.Date
	tx.Note = f.Note
	return tx
}

// KindMatches reports whether the filter's kind predicate accepts k.
func (f Filter) KindMatches(k Kind) bool {
	return f.Kind == "" || f.Kind == "all" || f.Kind == string(k)
}

// CategoryMatches reports whether the filter's category predicate accepts c.
func (f Filter) CategoryMatches(c string) bool {
	return f.Category == "" || f.Category == "all" || f.Category == c
}

// dateValue returns the ordering key for a transaction: the occurrence
// date when it parses, otherwise the creation timestamp, otherwise zero.
func dateValue(tx Transaction) time.Time {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if tx.Date != "" {
			if t, err := time.Parse(layout, tx.Date); err == nil {
				return t
			}
		}
	}
	if tx.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, tx.CreatedAt); err == nil {
			return t
		}
	}
	return time.Time{}
}

// SortTransactions orders records by occurrence date descending, breaking
// ties by title ascending. This is the canonical store order.
func SortTransactions(items []Transaction) {
	sort.SliceStable(items, func(i, j int) bool {
		di, dj := dateValue(items[i]), dateValue(items[j])
		if !di.Equal(dj) {
			return di.After(dj)
		}
		return items[i].Title < items[j].Title
	})
}
