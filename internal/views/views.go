// Package views derives filtered lists, aggregate totals and category
// breakdowns from a snapshot of an owner's record set. Every function here
// is pure: identical inputs yield identical outputs, so callers may
// recompute on every filter keystroke or store event without caching.
package views

import (
	"math"
	"sort"
	"strings"

	"flowledger/internal/core"
)

type (
	// Summary holds the aggregate totals over the full, unfiltered
	// record set. Filters never apply to it.
	Summary struct {
		Income  float64 `json:"income"`
		Expense float64 `json:"expense"`
		Balance float64 `json:"balance"`
	}

	// CategoryAmount is one slice of the expense breakdown.
	CategoryAmount struct {
		Category string  `json:"category"`
		Amount   float64 `json:"amount"`
	}

	// CategoryShare extends a breakdown entry with its proportion of
	// total expenses, for the spending chart.
	CategoryShare struct {
		Category string  `json:"category"`
		Amount   float64 `json:"amount"`
		Share    float64 `json:"share"`
	}
)

// Categories returns the distinct non-empty categories present in the
// record set, lexicographically sorted. Used to populate filter choices.
func Categories(records []core.Transaction) []string {
	seen := make(map[string]struct{}, len(records))
	out := make([]string, 0, len(records))
	for _, tx := range records {
		if tx.Category == "" {
			continue
		}
		if _, ok := seen[tx.Category]; ok {
			continue
		}
		seen[tx.Category] = struct{}{}
		out = append(out, tx.Category)
	}
	sort.Strings(out)
	return out
}

// Filtered returns the records matching all three filter predicates,
// preserving input order (the store already delivers date-descending).
func Filtered(records []core.Transaction, f core.Filter) []core.Transaction {
	query := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]core.Transaction, 0, len(records))
	for _, tx := range records {
		if !matchesQuery(tx, query) {
			continue
		}
		if !f.KindMatches(tx.Kind) || !f.CategoryMatches(tx.Category) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

func matchesQuery(tx core.Transaction, query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(tx.Title), query) ||
		strings.Contains(strings.ToLower(tx.Category), query) ||
		strings.Contains(strings.ToLower(tx.Note), query)
}

// Summarize accumulates income and expense totals over the entire record
// set in a single pass. Non-finite amounts count as zero.
func Summarize(records []core.Transaction) Summary {
	var s Summary
	for _, tx := range records {
		amount := safeAmount(tx.Amount)
		if tx.Kind == core.Income {
			s.Income += amount
		} else {
			s.Expense += amount
		}
	}
	s.Balance = s.Income - s.Expense
	return s
}

// Breakdown groups expense-kind records by category and sums their
// amounts, sorted descending by sum. Ties keep first-encountered order.
func Breakdown(records []core.Transaction) []CategoryAmount {
	index := make(map[string]int, len(records))
	out := make([]CategoryAmount, 0, len(records))
	for _, tx := range records {
		if tx.Kind != core.Expense {
			continue
		}
		amount := safeAmount(tx.Amount)
		if i, ok := index[tx.Category]; ok {
			out[i].Amount += amount
			continue
		}
		index[tx.Category] = len(out)
		out = append(out, CategoryAmount{Category: tx.Category, Amount: amount})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount > out[j].Amount
	})
	return out
}

// Shares annotates a breakdown with each category's proportion of total
// expenses. A non-positive total yields an empty result so the caller can
// render an explicit no-data state instead of a degenerate chart.
func Shares(breakdown []CategoryAmount, totalExpense float64) []CategoryShare {
	if totalExpense <= 0 {
		return nil
	}
	out := make([]CategoryShare, len(breakdown))
	for i, entry := range breakdown {
		out[i] = CategoryShare{
			Category: entry.Category,
			Amount:   entry.Amount,
			Share:    entry.Amount / totalExpense,
		}
	}
	return out
}

func safeAmount(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
