package views

import (
	"math/rand"
	"testing"

	"flowledger/internal/core"
)

func sampleRecords() []core.Transaction {
	return []core.Transaction{
		{ID: "1", Title: "Pay", Amount: 1000, Kind: core.Income, Category: "Salary", Date: "2024-01-05"},
		{ID: "2", Title: "Food run", Amount: 200, Kind: core.Expense, Category: "Food", Date: "2024-01-04", Note: "weekly shop"},
		{ID: "3", Title: "Bus ticket", Amount: 40, Kind: core.Expense, Category: "Transport", Date: "2024-01-03"},
		{ID: "4", Title: "Snacks", Amount: 60, Kind: core.Expense, Category: "Food", Date: "2024-01-02"},
	}
}

func TestFilteredIsSubsetSatisfyingPredicates(t *testing.T) {
	records := sampleRecords()
	filters := []core.Filter{
		{},
		{Query: "food"},
		{Kind: "expense"},
		{Category: "Food"},
		{Query: "weekly", Kind: "expense", Category: "Food"},
		{Query: "no-such-record"},
	}

	byID := make(map[string]bool, len(records))
	for _, tx := range records {
		byID[tx.ID] = true
	}

	for _, f := range filters {
		got := Filtered(records, f)
		if len(got) > len(records) {
			t.Fatalf("filter %+v produced more records than input", f)
		}
		for _, tx := range got {
			if !byID[tx.ID] {
				t.Fatalf("filter %+v produced record %q not in input", f, tx.ID)
			}
			if !f.KindMatches(tx.Kind) || !f.CategoryMatches(tx.Category) {
				t.Fatalf("filter %+v let through non-matching record %q", f, tx.ID)
			}
		}
	}
}

func TestFilteredQueryMatchesTitleCategoryNote(t *testing.T) {
	records := sampleRecords()

	cases := []struct {
		query string
		want  []string
	}{
		{"pay", []string{"1"}},          // title
		{"transport", []string{"3"}},    // category
		{"weekly", []string{"2"}},       // note
		{"FOOD", []string{"2", "4"}},    // case-insensitive
		{"", []string{"1", "2", "3", "4"}},
	}
	for _, tc := range cases {
		got := Filtered(records, core.Filter{Query: tc.query})
		if len(got) != len(tc.want) {
			t.Fatalf("query %q: got %d records, want %d", tc.query, len(got), len(tc.want))
		}
		for i, id := range tc.want {
			if got[i].ID != id {
				t.Fatalf("query %q: position %d = %s, want %s", tc.query, i, got[i].ID, id)
			}
		}
	}
}

func TestFilteredPreservesOrder(t *testing.T) {
	records := sampleRecords()
	got := Filtered(records, core.Filter{Kind: "expense"})
	want := []string{"2", "3", "4"}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("order broken at %d: got %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestSummarizeScenario(t *testing.T) {
	records := []core.Transaction{
		{Title: "Pay", Amount: 1000, Kind: core.Income, Category: "Salary", Date: "2024-01-05"},
		{Title: "Food", Amount: 200, Kind: core.Expense, Category: "Food", Date: "2024-01-04"},
	}
	s := Summarize(records)
	if s.Income != 1000 || s.Expense != 200 || s.Balance != 800 {
		t.Fatalf("summary = %+v, want {1000 200 800}", s)
	}

	breakdown := Breakdown(records)
	if len(breakdown) != 1 || breakdown[0].Category != "Food" || breakdown[0].Amount != 200 {
		t.Fatalf("breakdown = %+v, want [{Food 200}]", breakdown)
	}
}

func TestSummarizeBalanceIdentity(t *testing.T) {
	s := Summarize(sampleRecords())
	if s.Balance != s.Income-s.Expense {
		t.Fatalf("balance %v != income %v - expense %v", s.Balance, s.Income, s.Expense)
	}
}

func TestSummarizeOrderInvariant(t *testing.T) {
	records := sampleRecords()
	want := Summarize(records)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		shuffled := append([]core.Transaction(nil), records...)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		if got := Summarize(shuffled); got != want {
			t.Fatalf("summary changed under reordering: got %+v, want %+v", got, want)
		}
	}
}

func TestSummarizeIgnoresFilters(t *testing.T) {
	records := sampleRecords()
	filtered := Filtered(records, core.Filter{Category: "Food"})
	if len(filtered) == len(records) {
		t.Fatal("filter should have narrowed the set")
	}
	// Summary is always computed over the full set; the filtered subset
	// summarises differently, proving the two are independent inputs.
	if Summarize(records) == Summarize(filtered) {
		t.Fatal("expected different summaries for full and filtered sets")
	}
}

func TestBreakdownSumEqualsExpenseTotal(t *testing.T) {
	records := sampleRecords()
	var sum float64
	for _, entry := range Breakdown(records) {
		sum += entry.Amount
	}
	if want := Summarize(records).Expense; sum != want {
		t.Fatalf("breakdown sum %v != summary expense %v", sum, want)
	}
}

func TestBreakdownExpensesOnlySortedDesc(t *testing.T) {
	got := Breakdown(sampleRecords())
	want := []CategoryAmount{{"Food", 260}, {"Transport", 40}}
	if len(got) != len(want) {
		t.Fatalf("breakdown = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("breakdown[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestBreakdownTiesKeepFirstEncounteredOrder(t *testing.T) {
	records := []core.Transaction{
		{Title: "a", Amount: 50, Kind: core.Expense, Category: "Beta"},
		{Title: "b", Amount: 50, Kind: core.Expense, Category: "Alpha"},
	}
	got := Breakdown(records)
	if got[0].Category != "Beta" || got[1].Category != "Alpha" {
		t.Fatalf("tie order broken: %+v", got)
	}
}

func TestCategoriesDistinctSorted(t *testing.T) {
	records := append(sampleRecords(), core.Transaction{Title: "blank", Category: ""})
	got := Categories(records)
	want := []string{"Food", "Salary", "Transport"}
	if len(got) != len(want) {
		t.Fatalf("categories = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("categories = %v, want %v", got, want)
		}
	}
}

func TestSharesEmptyWhenNoExpenses(t *testing.T) {
	if got := Shares(nil, 0); got != nil {
		t.Fatalf("expected nil shares for zero total, got %+v", got)
	}
	if got := Shares([]CategoryAmount{{"Food", 10}}, -1); got != nil {
		t.Fatalf("expected nil shares for negative total, got %+v", got)
	}

	shares := Shares([]CategoryAmount{{"Food", 60}, {"Transport", 40}}, 100)
	if shares[0].Share != 0.6 || shares[1].Share != 0.4 {
		t.Fatalf("shares = %+v", shares)
	}
}

func TestZeroAmountContributesZero(t *testing.T) {
	cleaned := core.CleanInput(core.Input{Title: "Mystery", Amount: "", Kind: "expense", Category: "Misc"})
	records := []core.Transaction{cleaned.Apply(core.Transaction{ID: "x"})}
	s := Summarize(records)
	if s.Expense != 0 || s.Income != 0 || s.Balance != 0 {
		t.Fatalf("empty amount should contribute zero, summary = %+v", s)
	}
	if len(records) != 1 {
		t.Fatal("record with zero amount must still exist")
	}
}
