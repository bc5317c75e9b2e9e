package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mcaveniathor/fema-web-declaration/internal/testutil"
	"github.com/mcaveniathor/fema-web-declaration/pkg/client"
	"github.com/mcaveniathor/fema-web-declaration/pkg/openfema"
)

func newTestClient(t *testing.T) *client.Client {
	t.Helper()

	c, err := client.New(client.DefaultConfig())
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	return c
}

func newTestCollector(t *testing.T, baseURL string, workers int) *Collector {
	t.Helper()

	collector, err := NewCollector(newTestClient(t), Config{
		BaseURL: baseURL,
		Query:   "q=1",
		Workers: workers,
	})
	if err != nil {
		t.Fatalf("NewCollector() error = %v", err)
	}
	return collector
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		count    int
		pageSize int
		want     int
	}{
		{count: 0, pageSize: 1000, want: 1},
		{count: 1, pageSize: 1000, want: 1},
		{count: 999, pageSize: 1000, want: 1},
		{count: 1000, pageSize: 1000, want: 2}, // exact multiple keeps the trailing page
		{count: 1001, pageSize: 1000, want: 2},
		{count: 2500, pageSize: 1000, want: 3},
		{count: 3000, pageSize: 1000, want: 4},
		{count: 2500, pageSize: 500, want: 6},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("count_%d_size_%d", tt.count, tt.pageSize), func(t *testing.T) {
			if got := TotalPages(tt.count, tt.pageSize); got != tt.want {
				t.Errorf("TotalPages(%d, %d) = %d, want %d", tt.count, tt.pageSize, got, tt.want)
			}
		})
	}
}

func TestNewCollectorValidation(t *testing.T) {
	if _, err := NewCollector(nil, Config{BaseURL: "https://x"}); err == nil {
		t.Error("expected error for nil getter")
	}
	if _, err := NewCollector(newTestClient(t), Config{}); err == nil {
		t.Error("expected error for empty base URL")
	}
}

func TestCollectMultiplePages(t *testing.T) {
	mock := testutil.NewMockOpenFEMA(testutil.GenerateAreas(2500))
	defer mock.Close()

	collector := newTestCollector(t, mock.URL(), 1)

	areas, err := collector.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	if len(areas) != 2500 {
		t.Errorf("len(areas) = %d, want 2500", len(areas))
	}
	if got := mock.GetRequestCount(); got != 3 {
		t.Errorf("request count = %d, want 3", got)
	}

	wantSkips := []int{0, 1000, 2000}
	skips := mock.GetSkips()
	if len(skips) != len(wantSkips) {
		t.Fatalf("skips = %v, want %v", skips, wantSkips)
	}
	for i, want := range wantSkips {
		if skips[i] != want {
			t.Errorf("skips[%d] = %d, want %d", i, skips[i], want)
		}
	}

	// Only page 0 requests metadata.
	if !mock.MetadataOn[0] || mock.MetadataOn[1] || mock.MetadataOn[2] {
		t.Errorf("metadata flags = %v, want [true false false]", mock.MetadataOn)
	}

	// Insertion order equals server page order.
	for i, area := range areas {
		if area.DisasterNumber != 4000+i {
			t.Fatalf("areas[%d].DisasterNumber = %d, want %d (order broken)", i, area.DisasterNumber, 4000+i)
		}
	}
}

func TestCollectEmptyResult(t *testing.T) {
	mock := testutil.NewMockOpenFEMA(testutil.GenerateAreas(0))
	defer mock.Close()

	collector := newTestCollector(t, mock.URL(), 1)

	areas, err := collector.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	if len(areas) != 0 {
		t.Errorf("len(areas) = %d, want 0", len(areas))
	}
	if got := mock.GetRequestCount(); got != 1 {
		t.Errorf("request count = %d, want 1 (only page 0)", got)
	}
}

func TestCollectSinglePartialPage(t *testing.T) {
	mock := testutil.NewMockOpenFEMA(testutil.GenerateAreas(42))
	defer mock.Close()

	collector := newTestCollector(t, mock.URL(), 1)

	areas, err := collector.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(areas) != 42 {
		t.Errorf("len(areas) = %d, want 42", len(areas))
	}
	if got := mock.GetRequestCount(); got != 1 {
		t.Errorf("request count = %d, want 1", got)
	}
}

func TestCollectExactMultipleIssuesTrailingPage(t *testing.T) {
	mock := testutil.NewMockOpenFEMA(testutil.GenerateAreas(1000))
	defer mock.Close()

	collector := newTestCollector(t, mock.URL(), 1)

	areas, err := collector.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v (empty trailing page must not fail)", err)
	}

	if len(areas) != 1000 {
		t.Errorf("len(areas) = %d, want 1000", len(areas))
	}
	// The second request is expected even though it returns no records.
	if got := mock.GetRequestCount(); got != 2 {
		t.Errorf("request count = %d, want 2", got)
	}
}

func TestCollectAbortsOnPageFailure(t *testing.T) {
	mock := testutil.NewMockOpenFEMA(testutil.GenerateAreas(2500))
	defer mock.Close()

	mock.FailAtSkip(1000, http.StatusInternalServerError)

	collector := newTestCollector(t, mock.URL(), 1)

	areas, err := collector.Collect(context.Background())
	if err == nil {
		t.Fatal("Collect() expected error, got nil")
	}
	if areas != nil {
		t.Errorf("Collect() returned %d records on failure, want none", len(areas))
	}

	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *client.APIError", err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", apiErr.StatusCode)
	}

	// Page 2 is never requested after the page 1 failure.
	if got := mock.GetRequestCount(); got != 2 {
		t.Errorf("request count = %d, want 2 (no requests after failure)", got)
	}
}

func TestCollectAbortsOnFirstPageFailure(t *testing.T) {
	mock := testutil.NewMockOpenFEMA(testutil.GenerateAreas(2500))
	defer mock.Close()

	mock.FailAtSkip(0, http.StatusNotFound)

	collector := newTestCollector(t, mock.URL(), 1)

	if _, err := collector.Collect(context.Background()); err == nil {
		t.Fatal("Collect() expected error, got nil")
	}
	if got := mock.GetRequestCount(); got != 1 {
		t.Errorf("request count = %d, want 1", got)
	}
}

func TestCollectConcurrentPreservesOrder(t *testing.T) {
	mock := testutil.NewMockOpenFEMA(testutil.GenerateAreas(5000))
	defer mock.Close()

	collector := newTestCollector(t, mock.URL(), 4)

	areas, err := collector.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	if len(areas) != 5000 {
		t.Fatalf("len(areas) = %d, want 5000", len(areas))
	}
	for i, area := range areas {
		if area.DisasterNumber != 4000+i {
			t.Fatalf("areas[%d].DisasterNumber = %d, want %d (order broken)", i, area.DisasterNumber, 4000+i)
		}
	}
	if got := mock.GetRequestCount(); got != 6 {
		t.Errorf("request count = %d, want 6", got)
	}
}

func TestCollectConcurrentAbortsOnFailure(t *testing.T) {
	mock := testutil.NewMockOpenFEMA(testutil.GenerateAreas(5000))
	defer mock.Close()

	mock.FailAtSkip(3000, http.StatusBadGateway)

	collector := newTestCollector(t, mock.URL(), 4)

	areas, err := collector.Collect(context.Background())
	if err == nil {
		t.Fatal("Collect() expected error, got nil")
	}
	if areas != nil {
		t.Errorf("Collect() returned %d records on failure, want none", len(areas))
	}
}

func TestCollectDecodeFailureAborts(t *testing.T) {
	// A shape mismatch on page 0: valid JSON, wrong envelope.
	badSrv := newStaticServer(t, `{"metadata": "nope"}`)
	defer badSrv.Close()

	collector := newTestCollector(t, badSrv.URL, 1)

	if _, err := collector.Collect(context.Background()); err == nil {
		t.Fatal("Collect() expected decode error, got nil")
	}
}

func TestCollectMissingMetadataAborts(t *testing.T) {
	// Page 0 answered with the metadata-free envelope: valid records, but no
	// count. Treated as a shape mismatch, not a one-page result set.
	page, err := json.Marshal(openfema.PageResponse{Areas: testutil.GenerateAreas(1)})
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}

	srv := newStaticServer(t, string(page))
	defer srv.Close()

	collector := newTestCollector(t, srv.URL, 1)

	areas, err := collector.Collect(context.Background())
	if err == nil {
		t.Fatalf("Collect() = %d records, nil error; want decode error", len(areas))
	}
	if areas != nil {
		t.Errorf("Collect() returned %d records on failure, want none", len(areas))
	}
	if !strings.Contains(err.Error(), "decode page 0") {
		t.Errorf("error = %q, want decode page 0 context", err.Error())
	}
}

func TestCollectNegativeCountReturnsFirstPage(t *testing.T) {
	body := `{"metadata": {"count": -42}, "FemaWebDeclarationAreas": []}`

	srv := newStaticServer(t, body)
	defer srv.Close()

	collector := newTestCollector(t, srv.URL, 1)

	areas, err := collector.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(areas) != 0 {
		t.Errorf("len(areas) = %d, want 0", len(areas))
	}
}

// newStaticServer serves the same body for every request.
func newStaticServer(t *testing.T, body string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
}
