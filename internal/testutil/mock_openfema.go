// Package testutil provides testing utilities for the declaration exporter.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/mcaveniathor/fema-web-declaration/pkg/openfema"
)

// MockOpenFEMA is a configurable mock of the FemaWebDeclarationAreas
// endpoint. It pages through a fixture record set honoring $skip, $top, and
// $metadata, and can be told to fail specific pages.
type MockOpenFEMA struct {
	server  *httptest.Server
	mu      sync.RWMutex
	fixture []openfema.DeclarationArea

	// failures maps a $skip offset to the status code to return for it.
	failures map[int]int

	// Tracking
	RequestCount int
	Skips        []int
	Tops         []int
	MetadataOn   []bool
}

// NewMockOpenFEMA creates a mock server paging over the given fixture.
func NewMockOpenFEMA(fixture []openfema.DeclarationArea) *MockOpenFEMA {
	mock := &MockOpenFEMA{
		fixture:  fixture,
		failures: make(map[int]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))

	return mock
}

// URL returns the mock server URL, usable as the pagination base URL.
func (m *MockOpenFEMA) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockOpenFEMA) Close() {
	m.server.Close()
}

// FailAtSkip makes every request with the given $skip offset return status.
func (m *MockOpenFEMA) FailAtSkip(skip, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[skip] = status
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockOpenFEMA) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetSkips returns the $skip offset of every request, in arrival order.
func (m *MockOpenFEMA) GetSkips() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]int, len(m.Skips))
	copy(out, m.Skips)
	return out
}

func (m *MockOpenFEMA) handle(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	skip, _ := strconv.Atoi(params.Get("$skip"))
	top, _ := strconv.Atoi(params.Get("$top"))
	withMetadata := params.Get("$metadata") == "on"

	m.mu.Lock()
	m.RequestCount++
	m.Skips = append(m.Skips, skip)
	m.Tops = append(m.Tops, top)
	m.MetadataOn = append(m.MetadataOn, withMetadata)
	failStatus := m.failures[skip]
	m.mu.Unlock()

	if failStatus != 0 {
		http.Error(w, `{"error": "injected failure"}`, failStatus)
		return
	}

	if top <= 0 {
		top = openfema.PageSize
	}

	page := m.slice(skip, top)

	w.Header().Set("Content-Type", "application/json")

	var body interface{}
	if withMetadata {
		body = openfema.MetadataResponse{
			Metadata: openfema.Metadata{
				Skip:       skip,
				Top:        top,
				Count:      len(m.fixture),
				Filter:     params.Get("$filter"),
				Format:     "json",
				Metadata:   true,
				Select:     params.Get("$select"),
				EntityName: "FemaWebDeclarationAreas",
				Version:    "v1",
				URL:        r.URL.String(),
				RunDate:    time.Now().UTC(),
			},
			Areas: page,
		}
	} else {
		body = openfema.PageResponse{Areas: page}
	}

	if err := json.NewEncoder(w).Encode(body); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// slice returns the fixture window [skip, skip+top), clamped to the fixture.
func (m *MockOpenFEMA) slice(skip, top int) []openfema.DeclarationArea {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if skip >= len(m.fixture) {
		return []openfema.DeclarationArea{}
	}
	end := skip + top
	if end > len(m.fixture) {
		end = len(m.fixture)
	}
	return m.fixture[skip:end]
}

// GenerateAreas builds n deterministic fixture records.
func GenerateAreas(n int) []openfema.DeclarationArea {
	base := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

	areas := make([]openfema.DeclarationArea, n)
	for i := range areas {
		areas[i] = openfema.DeclarationArea{
			DisasterNumber:         4000 + i,
			ProgramTypeCode:        "DR",
			ProgramTypeDescription: "Disaster Recovery",
			StateCode:              "TX",
			PlaceCode:              fmt.Sprintf("99%03d", i%1000),
			PlaceName:              fmt.Sprintf("Test County %d", i),
			DesignatedDate:         base.Add(time.Duration(i) * time.Hour),
			EntryDate:              base.Add(time.Duration(i)*time.Hour + 30*time.Minute),
			UpdateDate:             base.Add(time.Duration(i)*time.Hour + time.Hour),
			Hash:                   fmt.Sprintf("hash-%08d", i),
			LastRefresh:            base.Add(24 * time.Hour),
			ID:                     fmt.Sprintf("id-%08d", i),
		}
	}
	return areas
}
