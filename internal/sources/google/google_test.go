package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"claimlens/internal/sources"
)

func fakeSheets(t *testing.T, tabs map[string][][]interface{}) (*gsheet.Service, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		idx := strings.Index(r.URL.Path, "/values/")
		if idx < 0 {
			http.NotFound(w, r)
			return
		}
		tab := r.URL.Path[idx+len("/values/"):]
		values, ok := tabs[tab]
		if !ok {
			http.Error(w, `{"error":{"code":400,"message":"Unable to parse range"}}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"range": tab, "majorDimension": "ROWS", "values": values})
	}))
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, &calls
}

func TestClientReadRowsConcatenatesTabsInOrder(t *testing.T) {
	header := []interface{}{"MONTH", "PAYER", "SERVICE_CATEGORY", "CLAIM_SPECIALTY", "PAID_AMOUNT"}
	svc, calls := fakeSheets(t, map[string][][]interface{}{
		"2023 Claims": {header, {"2023-12-01", "A", "ER", "x", "1"}},
		"2024 Claims": {header, {"2024-01-01", "B", "ER", "y", "2"}, {"2024-02-01", "A", "Lab", "", "3"}},
	})

	c := New(svc, "sheet-id", []string{"2023 Claims", " 2024 Claims ", ""}, sources.Columns{})
	rows, err := c.ReadRows(context.Background())
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if len(rows) != 3 || rows[0].Payer != "A" || rows[1].Payer != "B" || rows[2].PaidAmount != "3" {
		t.Fatalf("unexpected rows %+v", rows)
	}
	if got := atomic.LoadInt32(calls); got != 2 {
		t.Fatalf("expected 2 API calls, got %d", got)
	}
}

func TestClientReadRowsFailsOnAnyTab(t *testing.T) {
	svc, _ := fakeSheets(t, map[string][][]interface{}{
		"Claims": {{"MONTH", "PAYER", "SERVICE_CATEGORY", "PAID_AMOUNT"}},
	})
	c := New(svc, "sheet-id", []string{"Claims", "Missing"}, sources.DefaultColumns())
	if _, err := c.ReadRows(context.Background()); err == nil || !strings.Contains(err.Error(), "Missing") {
		t.Fatalf("expected error naming the failing tab, got %v", err)
	}
}

func TestNewDefaultsSheetName(t *testing.T) {
	c := New(nil, " id ", nil, sources.Columns{})
	if len(c.sheets) != 1 || c.sheets[0] != "Claims" || c.spreadsheetID != "id" {
		t.Fatalf("unexpected client %+v", c)
	}
	if _, err := c.ReadRows(context.Background()); err == nil {
		t.Fatalf("expected error without service")
	}
}

func TestNewFromConfigValidation(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	if _, err := NewFromConfig(context.Background(), Config{}); err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := NewFromConfig(context.Background(), Config{SpreadsheetID: "x"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}
