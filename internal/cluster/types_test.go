package cluster

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dreamware/fanoutsearch/internal/topology"
)

func TestTopologyDescriptorRoundTrip(t *testing.T) {
	desc := TopologyDescriptor{
		Shards: []ShardDescriptor{
			{NodeID: "node-1", Host: "10.0.0.1", Port: 6379, SlotRanges: []SlotRangeDescriptor{{Start: 0, End: 8191}}},
			{NodeID: "node-2", Host: "10.0.0.2", Port: 6379, AuthToken: "secret", SlotRanges: []SlotRangeDescriptor{{Start: 8192, End: 16383}}},
		},
	}

	topo := desc.ToTopology()
	if topo.NumShards() != 2 {
		t.Fatalf("expected 2 shards, got %d", topo.NumShards())
	}

	back := DescriptorFromTopology(topo)
	if len(back.Shards) != 2 {
		t.Fatalf("expected 2 shards back, got %d", len(back.Shards))
	}
	if back.Shards[1].AuthToken != "secret" {
		t.Errorf("expected auth token preserved, got %q", back.Shards[1].AuthToken)
	}
	if back.Shards[0].SlotRanges[0].End != 8191 {
		t.Errorf("expected slot range end 8191, got %d", back.Shards[0].SlotRanges[0].End)
	}
}

func TestTopologyDescriptorJSON(t *testing.T) {
	desc := TopologyDescriptor{Shards: []ShardDescriptor{
		{NodeID: "node-1", Host: "localhost", Port: 6379, SlotRanges: []SlotRangeDescriptor{{Start: 0, End: 16383}}},
	}}
	data, err := json.Marshal(desc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded TopologyDescriptor
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Shards[0].NodeID != "node-1" {
		t.Errorf("expected node_id node-1, got %q", decoded.Shards[0].NodeID)
	}
}

func TestFetchTopology(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		json.NewEncoder(w).Encode(TopologyDescriptor{
			Shards: []ShardDescriptor{
				{NodeID: "node-1", Host: "127.0.0.1", Port: 7000, SlotRanges: []SlotRangeDescriptor{{Start: 0, End: 16383}}},
			},
		})
	}))
	defer server.Close()

	topo, err := FetchTopology(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchTopology: %v", err)
	}
	if topo.NumShards() != 1 {
		t.Fatalf("expected 1 shard, got %d", topo.NumShards())
	}
	if topo.Shard(0).NodeID != "node-1" {
		t.Errorf("expected node-1, got %s", topo.Shard(0).NodeID)
	}
}

func TestFetchTopologyError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	if _, err := FetchTopology(context.Background(), server.URL); err == nil {
		t.Error("expected error for 500 response, got none")
	}
}

func TestPushTopology(t *testing.T) {
	var received TopologyDescriptor
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	b := topology.NewBuilder()
	b.AddShard("node-1", topology.Endpoint{Host: "h", Port: 1}, []topology.SlotRange{{Start: 0, End: 100}})
	topo := b.Build()

	if err := PushTopology(context.Background(), server.URL, topo); err != nil {
		t.Fatalf("PushTopology: %v", err)
	}
	if len(received.Shards) != 1 || received.Shards[0].NodeID != "node-1" {
		t.Errorf("unexpected received descriptor: %+v", received)
	}
}

// TestPostJSON tests the PostJSON function with various scenarios
func TestPostJSON(t *testing.T) {
	tests := []struct {
		name           string
		serverResponse int
		serverBody     string
		requestBody    interface{}
		responseBody   interface{}
		expectError    bool
		contextTimeout bool
	}{
		{
			name:           "successful POST with response",
			serverResponse: http.StatusOK,
			serverBody:     `{"status":"ok"}`,
			requestBody:    map[string]string{"test": "data"},
			responseBody:   &map[string]string{},
			expectError:    false,
		},
		{
			name:           "successful POST without response body",
			serverResponse: http.StatusNoContent,
			serverBody:     "",
			requestBody:    map[string]string{"test": "data"},
			responseBody:   nil,
			expectError:    false,
		},
		{
			name:           "server error response",
			serverResponse: http.StatusInternalServerError,
			serverBody:     `{"error":"internal error"}`,
			requestBody:    map[string]string{"test": "data"},
			responseBody:   nil,
			expectError:    true,
		},
		{
			name:           "bad request",
			serverResponse: http.StatusBadRequest,
			serverBody:     `{"error":"bad request"}`,
			requestBody:    map[string]string{"test": "data"},
			responseBody:   nil,
			expectError:    true,
		},
		{
			name:           "context timeout",
			serverResponse: http.StatusOK,
			serverBody:     `{"status":"ok"}`,
			requestBody:    map[string]string{"test": "data"},
			responseBody:   nil,
			expectError:    true,
			contextTimeout: true,
		},
		{
			name:           "unmarshalable request body",
			serverResponse: http.StatusOK,
			serverBody:     `{"status":"ok"}`,
			requestBody:    make(chan int),
			responseBody:   nil,
			expectError:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST, got %s", r.Method)
				}
				if ct := r.Header.Get("Content-Type"); ct != "application/json" {
					t.Errorf("expected Content-Type application/json, got %s", ct)
				}
				if tt.contextTimeout {
					time.Sleep(100 * time.Millisecond)
				}
				w.WriteHeader(tt.serverResponse)
				if tt.serverBody != "" {
					w.Write([]byte(tt.serverBody))
				}
			}))
			defer server.Close()

			ctx := context.Background()
			if tt.contextTimeout {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, 1*time.Millisecond)
				defer cancel()
			}

			err := PostJSON(ctx, server.URL, tt.requestBody, tt.responseBody)

			if tt.expectError && err == nil {
				t.Errorf("expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.expectError && tt.responseBody != nil {
				respMap := tt.responseBody.(*map[string]string)
				if (*respMap)["status"] != "ok" {
					t.Errorf("expected response status 'ok', got %v", *respMap)
				}
			}
		})
	}
}

func TestPostJSONInvalidURL(t *testing.T) {
	ctx := context.Background()

	if err := PostJSON(ctx, "://invalid-url", map[string]string{"test": "data"}, nil); err == nil {
		t.Error("expected error for invalid URL, got none")
	}
	if err := PostJSON(ctx, "http://localhost:99999", map[string]string{"test": "data"}, nil); err == nil {
		t.Error("expected error for unreachable server, got none")
	}
}

func TestGetJSON(t *testing.T) {
	tests := []struct {
		name           string
		serverResponse int
		serverBody     string
		responseBody   interface{}
		expectError    bool
		contextTimeout bool
	}{
		{
			name:           "successful GET",
			serverResponse: http.StatusOK,
			serverBody:     `{"data":"test","value":123}`,
			responseBody:   &map[string]interface{}{},
			expectError:    false,
		},
		{
			name:           "not found error",
			serverResponse: http.StatusNotFound,
			serverBody:     `{"error":"not found"}`,
			responseBody:   &map[string]interface{}{},
			expectError:    true,
		},
		{
			name:           "server error",
			serverResponse: http.StatusInternalServerError,
			serverBody:     `{"error":"internal server error"}`,
			responseBody:   &map[string]interface{}{},
			expectError:    true,
		},
		{
			name:           "context timeout",
			serverResponse: http.StatusOK,
			serverBody:     `{"data":"test"}`,
			responseBody:   &map[string]interface{}{},
			expectError:    true,
			contextTimeout: true,
		},
		{
			name:           "invalid JSON response",
			serverResponse: http.StatusOK,
			serverBody:     `{invalid json}`,
			responseBody:   &map[string]interface{}{},
			expectError:    true,
		},
		{
			name:           "redirect response",
			serverResponse: http.StatusMovedPermanently,
			serverBody:     "",
			responseBody:   &map[string]interface{}{},
			expectError:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("expected GET, got %s", r.Method)
				}
				if tt.contextTimeout {
					time.Sleep(100 * time.Millisecond)
				}
				w.WriteHeader(tt.serverResponse)
				if tt.serverBody != "" {
					w.Write([]byte(tt.serverBody))
				}
			}))
			defer server.Close()

			ctx := context.Background()
			if tt.contextTimeout {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, 1*time.Millisecond)
				defer cancel()
			}

			err := GetJSON(ctx, server.URL, tt.responseBody)

			if tt.expectError && err == nil {
				t.Errorf("expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.expectError && tt.responseBody != nil {
				respMap := tt.responseBody.(*map[string]interface{})
				if (*respMap)["data"] != "test" {
					t.Errorf("expected data 'test', got %v", (*respMap)["data"])
				}
				if (*respMap)["value"] != float64(123) {
					t.Errorf("expected value 123, got %v", (*respMap)["value"])
				}
			}
		})
	}
}

func TestGetJSONInvalidURL(t *testing.T) {
	ctx := context.Background()
	var result map[string]interface{}

	if err := GetJSON(ctx, "://invalid-url", &result); err == nil {
		t.Error("expected error for invalid URL, got none")
	}
	if err := GetJSON(ctx, "http://localhost:99999", &result); err == nil {
		t.Error("expected error for unreachable server, got none")
	}
}

func TestHTTPClient(t *testing.T) {
	if httpClient.Timeout != 5*time.Second {
		t.Errorf("expected HTTP client timeout of 5s, got %v", httpClient.Timeout)
	}
}
