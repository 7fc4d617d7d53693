package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testServer(t *testing.T, exits func(*Building) ExitLocator) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewServer(testPlanner(t, exits), zaptest.NewLogger(t), 5*time.Second).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postNavigate(t *testing.T, srv *httptest.Server, body string) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/navigate", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestNavigate_OK(t *testing.T) {
	srv := testServer(t, markerExits)

	resp, body := postNavigate(t, srv, `{
		"current_floor": 1,
		"player_position": {"x": "0.0", "y": "0", "z": "0.0"},
		"fire_positions": [{"x": 0.6, "y": 0, "z": 0.1}]
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	var path []Cell
	require.NoError(t, json.Unmarshal(body["path"], &path))
	require.NotEmpty(t, path)
	assert.Equal(t, Cell{1, 0, 0}, path[0])
	assert.Equal(t, Cell{1, 9, 9}, path[len(path)-1])

	var exit Cell
	require.NoError(t, json.Unmarshal(body["exit_position"], &exit))
	assert.Equal(t, Cell{1, 9, 9}, exit)

	var instructions []string
	require.NoError(t, json.Unmarshal(body["instructions"], &instructions))
	require.NotEmpty(t, instructions)
	for _, ins := range instructions {
		assert.True(t, strings.HasPrefix(ins, "Move ") || strings.HasPrefix(ins, "Go "), ins)
	}

	var room, requestID string
	require.NoError(t, json.Unmarshal(body["current_room"], &room))
	require.NoError(t, json.Unmarshal(body["request_id"], &requestID))
	assert.Equal(t, "Lobby", room)
	assert.NotEmpty(t, requestID)
}

func TestNavigate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		exits  func(*Building) ExitLocator
		body   string
		status int
		error  string
	}{
		{
			name:   "malformed json",
			exits:  markerExits,
			body:   `{"current_floor": `,
			status: http.StatusBadRequest,
			error:  "Invalid request body",
		},
		{
			name:   "non numeric coordinate",
			exits:  markerExits,
			body:   `{"current_floor": 1, "player_position": {"x": "left", "z": "0"}}`,
			status: http.StatusBadRequest,
			error:  "Invalid request body",
		},
		{
			name:   "missing floor",
			exits:  markerExits,
			body:   `{"player_position": {"x": 0, "z": 0}}`,
			status: http.StatusBadRequest,
			error:  "current_floor",
		},
		{
			name:   "missing position",
			exits:  markerExits,
			body:   `{"current_floor": 1}`,
			status: http.StatusBadRequest,
			error:  "player_position",
		},
		{
			name:   "fire without z",
			exits:  markerExits,
			body:   `{"current_floor": 1, "player_position": {"x": 0, "z": 0}, "fire_positions": [{"x": 1}]}`,
			status: http.StatusBadRequest,
			error:  "fire_positions[0]",
		},
		{
			name:   "fire beyond the cell range",
			exits:  markerExits,
			body:   `{"current_floor": 1, "player_position": {"x": 0, "z": 0}, "fire_positions": [{"x": 1e300, "z": 0}]}`,
			status: http.StatusBadRequest,
			error:  "fire position 0 out of range",
		},
		{
			name:   "exit cut off by fire",
			exits:  markerExits,
			body:   `{"current_floor": 1, "player_position": {"x": 0, "z": 0}, "fire_positions": [{"x": "0.5", "z": "0.9"}]}`,
			status: http.StatusNotFound,
			error:  "No safe path found",
		},
		{
			name:   "floor without exit",
			exits:  markerExits,
			body:   `{"current_floor": 7, "player_position": {"x": 0, "z": 0}}`,
			status: http.StatusUnprocessableEntity,
			error:  "no exit",
		},
		{
			name:   "floor without nodes",
			exits:  func(*Building) ExitLocator { return FixedExit(90, 90) },
			body:   `{"current_floor": 7, "player_position": {"x": 0, "z": 0}}`,
			status: http.StatusUnprocessableEntity,
			error:  "start",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testServer(t, tt.exits)

			resp, body := postNavigate(t, srv, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)

			var msg string
			require.NoError(t, json.Unmarshal(body["error"], &msg))
			assert.Contains(t, msg, tt.error)
		})
	}
}

func TestNavigate_MethodNotAllowed(t *testing.T) {
	srv := testServer(t, markerExits)

	resp, err := http.Get(srv.URL + "/navigate")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Method not allowed", body.Error)
	assert.NotEmpty(t, body.RequestID)
}

func TestNavigate_Preflight(t *testing.T) {
	srv := testServer(t, markerExits)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/navigate", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
}

func TestHealth(t *testing.T) {
	p := testPlanner(t, markerExits)
	srv := httptest.NewServer(NewServer(p, nil, time.Second).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status   string `json:"status"`
		Floors   int    `json:"floors"`
		NumNodes int    `json:"numNodes"`
		NumEdges int    `json:"numEdges"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ready", body.Status)
	assert.Equal(t, 2, body.Floors)
	assert.Equal(t, p.Graph().Len(), body.NumNodes)
	assert.Equal(t, p.Graph().EdgeCount(), body.NumEdges)
}

func TestGraphLines(t *testing.T) {
	srv := testServer(t, markerExits)

	resp, err := http.Get(srv.URL + "/graph/lines")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/geo+json", resp.Header.Get("Content-Type"))

	var fc geojson.FeatureCollection
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fc))
	assert.NotEmpty(t, fc.Features)

	post, err := http.Post(srv.URL+"/graph/lines", "application/json", nil)
	require.NoError(t, err)
	defer post.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, post.StatusCode)

	var body errorResponse
	require.NoError(t, json.NewDecoder(post.Body).Decode(&body))
	assert.Equal(t, "Method not allowed", body.Error)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := testServer(t, markerExits)

	ok, _ := postNavigate(t, srv, `{"current_floor": 1, "player_position": {"x": 0, "z": 0}}`)
	require.Equal(t, http.StatusOK, ok.StatusCode)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), `evacuation_navigate_requests_total{outcome="ok"}`)
	assert.Contains(t, string(data), "evacuation_search_duration_seconds")
}

func TestCoordinate_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{`1.5`, 1.5, false},
		{`"2.25"`, 2.25, false},
		{`" -3 "`, -3, false},
		{`"north"`, 0, true},
		{`true`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var c coordinate
			err := json.Unmarshal([]byte(tt.in), &c)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, float64(c))
		})
	}
}
