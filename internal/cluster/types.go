// Package cluster provides the coordinator's topology transport: fetching
// a topology descriptor from an external source (CLUSTERREFRESH) and
// pushing one to peer coordinators (propagation after CLUSTERSET).
// See doc.go for complete package documentation.
package cluster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dreamware/fanoutsearch/internal/topology"
)

// ShardDescriptor is the JSON wire shape for one shard in a topology
// descriptor, mirroring the fields topology.Builder.AddShard needs.
type ShardDescriptor struct {
	NodeID     string                `json:"node_id"`
	Host       string                `json:"host"`
	Port       int                   `json:"port"`
	AuthToken  string                `json:"auth_token,omitempty"`
	SlotRanges []SlotRangeDescriptor `json:"slot_ranges"`
}

// SlotRangeDescriptor is the JSON wire shape for one slot range.
type SlotRangeDescriptor struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// TopologyDescriptor is the JSON document a topology source (CLUSTERREFRESH)
// or a peer coordinator (CLUSTERSET propagation) exchanges, the over-the-wire
// counterpart of topology.Topology.
type TopologyDescriptor struct {
	Shards []ShardDescriptor `json:"shards"`
}

// ToTopology builds a topology.Topology from a decoded descriptor.
func (d TopologyDescriptor) ToTopology() *topology.Topology {
	b := topology.NewBuilder()
	for _, s := range d.Shards {
		ranges := make([]topology.SlotRange, len(s.SlotRanges))
		for i, r := range s.SlotRanges {
			ranges[i] = topology.SlotRange{Start: r.Start, End: r.End}
		}
		b.AddShard(s.NodeID, topology.Endpoint{Host: s.Host, Port: s.Port, AuthToken: s.AuthToken}, ranges)
	}
	return b.Build()
}

// DescriptorFromTopology converts a topology.Topology back into its JSON
// wire shape, used to push the coordinator's own topology to a peer.
func DescriptorFromTopology(t *topology.Topology) TopologyDescriptor {
	shards := t.Shards()
	out := make([]ShardDescriptor, len(shards))
	for i, s := range shards {
		ranges := make([]SlotRangeDescriptor, len(s.SlotRanges))
		for j, r := range s.SlotRanges {
			ranges[j] = SlotRangeDescriptor{Start: r.Start, End: r.End}
		}
		out[i] = ShardDescriptor{
			NodeID:     s.NodeID,
			Host:       s.Endpoint.Host,
			Port:       s.Endpoint.Port,
			AuthToken:  s.Endpoint.AuthToken,
			SlotRanges: ranges,
		}
	}
	return TopologyDescriptor{Shards: out}
}

// httpClient is the shared HTTP client used for all topology transport. A
// 5-second timeout prevents a slow or unreachable topology source from
// hanging a CLUSTERREFRESH call indefinitely.
var httpClient = &http.Client{Timeout: 5 * time.Second}

// FetchTopology GETs a TopologyDescriptor from url and converts it into a
// topology.Topology, the CLUSTERREFRESH control command's transport.
func FetchTopology(ctx context.Context, url string) (*topology.Topology, error) {
	var desc TopologyDescriptor
	if err := GetJSON(ctx, url, &desc); err != nil {
		return nil, err
	}
	return desc.ToTopology(), nil
}

// PushTopology POSTs the coordinator's current topology to a peer
// coordinator's CLUSTERSET-compatible endpoint at url, used to propagate a
// topology change applied via one coordinator to its peers.
func PushTopology(ctx context.Context, url string, t *topology.Topology) error {
	desc := DescriptorFromTopology(t)
	return PostJSON(ctx, url, desc, nil)
}

// PostJSON sends a JSON-encoded POST request to url and decodes the JSON
// response into out (nil to ignore the response body).
func PostJSON(ctx context.Context, url string, body, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %s: %d", url, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// GetJSON sends a GET request to url and decodes the JSON response into
// out.
func GetJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %s: %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
