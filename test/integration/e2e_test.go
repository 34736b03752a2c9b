// Package integration contains end-to-end integration tests for the Thistle API.
// Run with: go test -v ./test/integration/... -tags=integration
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseURL = getEnv("TEST_BASE_URL", "http://localhost:3000")

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// TestClient wraps http.Client with common headers
type TestClient struct {
	*http.Client
	baseURL string
}

func NewTestClient() *TestClient {
	return &TestClient{
		Client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
	}
}

func (c *TestClient) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Content-Type", "application/json")
	return c.Client.Do(req)
}

func (c *TestClient) Get(path string) (*http.Response, error) {
	req, err := http.NewRequest("GET", c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

func (c *TestClient) Post(path string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest("POST", c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

func (c *TestClient) Put(path string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest("PUT", c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

func parseResponse(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")
	if target != nil {
		require.NoError(t, json.Unmarshal(body, target), "failed to parse response: %s", string(body))
	}
}

// TestHealthCheck verifies the API is running
func TestHealthCheck(t *testing.T) {
	client := NewTestClient()

	resp, err := client.Get("/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result map[string]any
	parseResponse(t, resp, &result)
	assert.Equal(t, "healthy", result["status"])
}

// TestEventLifecycleE2E creates an event, binds a source, and walks the
// tracking control surface
func TestEventLifecycleE2E(t *testing.T) {
	client := NewTestClient()
	suffix := time.Now().UnixNano()
	mainStart := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)

	// Step 1: Create the event
	createReq := map[string]any{
		"name":            fmt.Sprintf("Test Fight Night %d", suffix),
		"promotion":       "UFC",
		"main_card_start": mainStart,
	}
	resp, err := client.Post("/api/v1/events", createReq)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "failed to create event")

	var created map[string]any
	parseResponse(t, resp, &created)
	eventID := created["id"].(string)
	require.NotEmpty(t, eventID)
	assert.Equal(t, "upcoming", created["status"])
	t.Logf("Created event: %s", eventID)

	// Step 2: Fetch it back
	resp, err = client.Get("/api/v1/events/" + eventID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var fetched map[string]any
	parseResponse(t, resp, &fetched)
	assert.Equal(t, eventID, fetched["id"])

	// Step 3: Card starts empty
	resp, err = client.Get("/api/v1/events/" + eventID + "/fights")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var fights []map[string]any
	parseResponse(t, resp, &fights)
	assert.Empty(t, fights)

	// Step 4: Bind a snapshot source
	bindReq := map[string]any{
		"source_family": "ufcstats",
		"source_url":    fmt.Sprintf("http://ufcstats.test/events/%d", suffix),
	}
	resp, err = client.Put("/api/v1/events/"+eventID+"/source", bindReq)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, "failed to bind source")

	var bound map[string]any
	parseResponse(t, resp, &bound)
	assert.Equal(t, "ufcstats", bound["source_family"])

	// Step 5: List by status includes the new event
	resp, err = client.Get("/api/v1/events?status=upcoming")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var upcoming []map[string]any
	parseResponse(t, resp, &upcoming)
	found := false
	for _, e := range upcoming {
		if e["id"] == eventID {
			found = true
			break
		}
	}
	assert.True(t, found, "created event missing from upcoming list")

	// Step 6: No tracker runs yet
	resp, err = client.Get("/api/v1/events/" + eventID + "/runs")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var runs []map[string]any
	parseResponse(t, resp, &runs)
	assert.Empty(t, runs)
}

// TestTrackingControlSurface exercises the scheduler and tracker endpoints
func TestTrackingControlSurface(t *testing.T) {
	client := NewTestClient()

	// Status reports registered trackers
	resp, err := client.Get("/api/v1/tracking/status")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status map[string]any
	parseResponse(t, resp, &status)
	trackers, ok := status["trackers"].([]any)
	require.True(t, ok)
	assert.NotEmpty(t, trackers, "no trackers registered")

	// Schedule-all arms timers without error
	resp, err = client.Post("/api/v1/tracking/schedule-all", map[string]any{})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var scheduled map[string]any
	parseResponse(t, resp, &scheduled)
	assert.Contains(t, scheduled, "scheduled")

	// Safety check completes
	resp, err = client.Post("/api/v1/tracking/safety-check", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	// Stop with no family halts everything and is idempotent
	resp, err = client.Post("/api/v1/tracking/stop", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()
}

// TestValidationErrors verifies the API rejects malformed requests
func TestValidationErrors(t *testing.T) {
	client := NewTestClient()

	// Missing required fields
	resp, err := client.Post("/api/v1/events", map[string]any{"name": "No Promotion"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Bad UUID
	resp, err = client.Get("/api/v1/events/not-a-uuid")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Unknown event
	resp, err = client.Get("/api/v1/events/00000000-0000-0000-0000-000000000001")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Tracking start without a bound source
	resp, err = client.Post("/api/v1/tracking/start", map[string]any{
		"event_id": "00000000-0000-0000-0000-000000000001",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}
