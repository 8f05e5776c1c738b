package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"flowledger/internal/core"
	"flowledger/internal/session"
	"flowledger/internal/store"
	"flowledger/internal/store/local"
	"flowledger/internal/views"
)

type testResolver struct {
	st store.Store
}

func (r *testResolver) ForOwner(ctx context.Context, ownerID string) (store.Store, store.Mode, error) {
	return r.st, store.ModeLocal, nil
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	st, err := local.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open local store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	srv := NewServer(":0", &testResolver{st: st}, session.NewManager(nil), nil, Options{})
	t.Cleanup(func() { srv.Shutdown(context.Background()) })

	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return srv, ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestHealthEndpoints(t *testing.T) {
	_, ts := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s status = %d", path, resp.StatusCode)
		}
	}
}

func TestCreateAndListTransactions(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/transactions", core.Input{
		Title:    "  Salary  ",
		Amount:   "1000",
		Kind:     "income",
		Category: "Pay",
		Date:     "2026-08-01",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	created := decodeBody[core.Transaction](t, resp)
	if created.ID == "" {
		t.Fatal("created transaction has no id")
	}
	if created.Title != "Salary" {
		t.Fatalf("title not trimmed: %q", created.Title)
	}
	if created.Amount != 1000 {
		t.Fatalf("amount = %v, want 1000", created.Amount)
	}

	listResp, err := http.Get(ts.URL + "/api/transactions")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	list := decodeBody[struct {
		Transactions []core.Transaction `json:"transactions"`
	}](t, listResp)
	if len(list.Transactions) != 1 || list.Transactions[0].ID != created.ID {
		t.Fatalf("list = %+v, want the created record", list.Transactions)
	}
}

func TestCreateCoercesBadAmountToZero(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/transactions", core.Input{
		Title:  "Typo",
		Amount: "not-a-number",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	created := decodeBody[core.Transaction](t, resp)
	if created.Amount != 0 {
		t.Fatalf("amount = %v, want 0", created.Amount)
	}
	if created.Kind != core.Expense {
		t.Fatalf("kind = %q, want expense", created.Kind)
	}
}

func TestUpdateMissingTransactionIs404(t *testing.T) {
	_, ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/transactions/no-such-id",
		bytes.NewReader([]byte(`{"title":"x","amount":"1"}`)))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestDeleteTransaction(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/transactions", core.Input{Title: "Gone", Amount: "5"})
	created := decodeBody[core.Transaction](t, resp)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/transactions/"+created.ID, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	delResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	delResp.Body.Close()
	if delResp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d", delResp.StatusCode)
	}

	listResp, err := http.Get(ts.URL + "/api/transactions")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	list := decodeBody[struct {
		Transactions []core.Transaction `json:"transactions"`
	}](t, listResp)
	if len(list.Transactions) != 0 {
		t.Fatalf("list after delete = %+v, want empty", list.Transactions)
	}
}

func seedScenario(t *testing.T, baseURL string) {
	t.Helper()
	for _, in := range []core.Input{
		{Title: "Pay", Amount: "1000", Kind: "income", Category: "Salary", Date: "2026-08-01"},
		{Title: "Groceries", Amount: "150", Kind: "expense", Category: "Food", Date: "2026-08-02"},
		{Title: "Snacks", Amount: "50", Kind: "expense", Category: "Food", Date: "2026-08-03"},
		{Title: "Bus", Amount: "30", Kind: "expense", Category: "Transport", Date: "2026-08-04"},
	} {
		resp := postJSON(t, baseURL+"/api/transactions", in)
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("seed %q: status %d", in.Title, resp.StatusCode)
		}
	}
}

func TestSummaryEndpoint(t *testing.T) {
	_, ts := newTestServer(t)
	seedScenario(t, ts.URL)

	resp, err := http.Get(ts.URL + "/api/summary")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	summary := decodeBody[views.Summary](t, resp)
	want := views.Summary{Income: 1000, Expense: 230, Balance: 770}
	if summary != want {
		t.Fatalf("summary = %+v, want %+v", summary, want)
	}
}

func TestBreakdownEndpoint(t *testing.T) {
	_, ts := newTestServer(t)
	seedScenario(t, ts.URL)

	resp, err := http.Get(ts.URL + "/api/breakdown")
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}
	body := decodeBody[struct {
		Breakdown []views.CategoryAmount `json:"breakdown"`
		Shares    []views.CategoryShare  `json:"shares"`
	}](t, resp)

	if len(body.Breakdown) != 2 {
		t.Fatalf("breakdown has %d entries, want 2", len(body.Breakdown))
	}
	if body.Breakdown[0].Category != "Food" || body.Breakdown[0].Amount != 200 {
		t.Fatalf("top entry = %+v, want Food/200", body.Breakdown[0])
	}
	var total float64
	for _, share := range body.Shares {
		total += share.Share
	}
	if diff := total - 1; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("shares sum to %v, want 1", total)
	}
}

func TestCategoriesEndpoint(t *testing.T) {
	_, ts := newTestServer(t)
	seedScenario(t, ts.URL)

	resp, err := http.Get(ts.URL + "/api/categories")
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	body := decodeBody[struct {
		Categories []string `json:"categories"`
	}](t, resp)
	want := []string{"Food", "Salary", "Transport"}
	if fmt.Sprint(body.Categories) != fmt.Sprint(want) {
		t.Fatalf("categories = %v, want %v", body.Categories, want)
	}
}

func TestListFilterQueryParams(t *testing.T) {
	_, ts := newTestServer(t)
	seedScenario(t, ts.URL)

	resp, err := http.Get(ts.URL + "/api/transactions?kind=expense&category=Food")
	if err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	list := decodeBody[struct {
		Transactions []core.Transaction `json:"transactions"`
	}](t, resp)
	if len(list.Transactions) != 2 {
		t.Fatalf("filtered list has %d records, want 2", len(list.Transactions))
	}
	for _, tx := range list.Transactions {
		if tx.Kind != core.Expense || tx.Category != "Food" {
			t.Fatalf("record %+v escaped the filter", tx)
		}
	}
}

func TestSessionLifecycleWithoutProvider(t *testing.T) {
	_, ts := newTestServer(t)

	stateResp, err := http.Get(ts.URL + "/api/session")
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	state := decodeBody[session.State](t, stateResp)
	if state.Identity != nil {
		t.Fatal("fresh session should be signed out")
	}

	signedIn := decodeBody[session.State](t, postJSON(t, ts.URL+"/api/session", signInRequest{}))
	if signedIn.Identity == nil || signedIn.Identity.UID != core.DemoOwnerID {
		t.Fatalf("sign-in without provider should resolve demo, got %+v", signedIn.Identity)
	}

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/session", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	outResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("sign-out: %v", err)
	}
	signedOut := decodeBody[session.State](t, outResp)
	if signedOut.Identity != nil {
		t.Fatal("sign-out should clear the identity")
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("X-Content-Type-Options = %q", got)
	}
	if resp.Header.Get("Content-Security-Policy") == "" {
		t.Fatal("missing Content-Security-Policy header")
	}
}
