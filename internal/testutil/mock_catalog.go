// Package testutil provides testing utilities for the card collector.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockResponse defines the behavior for one mocked set code.
type MockResponse struct {
	StatusCode int
	Body       string
	Delay      time.Duration
}

// MockCatalog is a configurable mock of the card search API for testing.
// Unknown set codes answer 404, matching the real catalog's behavior for
// invalid codes.
type MockCatalog struct {
	server    *httptest.Server
	mu        sync.RWMutex
	responses map[string]MockResponse
	pages     map[string][]string

	// RequestCount tracks total requests served.
	RequestCount int
	// RequestedCodes records set_code parameters in arrival order.
	RequestedCodes []string
	// LastUserAgent holds the most recent User-Agent header seen.
	LastUserAgent string
}

// NewMockCatalog creates a mock catalog server.
func NewMockCatalog() *MockCatalog {
	mock := &MockCatalog{
		responses: make(map[string]MockResponse),
		pages:     make(map[string][]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/search/v1/cards/", mock.handleSearch)
	mux.HandleFunc("/page/", mock.handlePage)
	mock.server = httptest.NewServer(mux)

	return mock
}

// BaseURL returns the mock search endpoint, suitable for catalog.Config.
func (m *MockCatalog) BaseURL() string {
	return m.server.URL + "/api/search/v1/cards/"
}

// Close shuts down the mock server.
func (m *MockCatalog) Close() {
	m.server.Close()
}

// SetResponse configures the response for one set code.
func (m *MockCatalog) SetResponse(code string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[code] = resp
}

// SetCards configures a 200 response carrying the given card documents as
// a single result page.
func (m *MockCatalog) SetCards(code string, cards ...string) {
	m.SetResponse(code, MockResponse{
		StatusCode: http.StatusOK,
		Body:       PageBody(len(cards), "", cards...),
	})
}

// SetPagedCards splits the cards into pages of pageSize, chained through
// next links served by the mock.
func (m *MockCatalog) SetPagedCards(code string, pageSize int, cards ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var chunks [][]string
	for start := 0; start < len(cards); start += pageSize {
		end := start + pageSize
		if end > len(cards) {
			end = len(cards)
		}
		chunks = append(chunks, cards[start:end])
	}

	// Wire up next links between consecutive pages.
	bodies := make([]string, len(chunks))
	for i, chunk := range chunks {
		next := ""
		if i+1 < len(chunks) {
			next = fmt.Sprintf("%s/page/%s/%d", m.server.URL, code, i+1)
		}
		bodies[i] = PageBody(len(cards), next, chunk...)
	}

	m.pages[code] = bodies
	m.responses[code] = MockResponse{StatusCode: http.StatusOK, Body: bodies[0]}
}

// GetRequestCount returns the number of requests served.
func (m *MockCatalog) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

func (m *MockCatalog) handleSearch(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("set_code")

	m.mu.Lock()
	m.RequestCount++
	m.RequestedCodes = append(m.RequestedCodes, code)
	m.LastUserAgent = r.Header.Get("User-Agent")
	resp, ok := m.responses[code]
	m.mu.Unlock()

	if !ok {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, `{"detail": "no cards found for set %q"}`, code)
		return
	}

	writeMock(w, resp)
}

func (m *MockCatalog) handlePage(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/page/"), "/")
	if len(parts) != 2 {
		http.NotFound(w, r)
		return
	}
	code := parts[0]
	idx, err := strconv.Atoi(parts[1])
	if err != nil {
		http.NotFound(w, r)
		return
	}

	m.mu.Lock()
	m.RequestCount++
	pages := m.pages[code]
	m.mu.Unlock()

	if idx < 0 || idx >= len(pages) {
		http.NotFound(w, r)
		return
	}

	writeMock(w, MockResponse{StatusCode: http.StatusOK, Body: pages[idx]})
}

func writeMock(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// PageBody builds a catalog search page payload from raw card JSON
// documents, embedding them byte-for-byte so clients see the documents
// exactly as written. An empty next produces a terminal page.
func PageBody(count int, next string, cards ...string) string {
	nextJSON := []byte("null")
	if next != "" {
		nextJSON, _ = json.Marshal(next)
	}

	return fmt.Sprintf(`{"count": %d, "next": %s, "previous": null, "results": [%s]}`,
		count, nextJSON, strings.Join(cards, ", "))
}

// NewServerErrorResponse creates a 500 response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"detail": "internal server error"}`,
	}
}

// NewMalformedResponse creates a 200 response whose body is not JSON.
func NewMalformedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `<html>not json</html>`,
	}
}
