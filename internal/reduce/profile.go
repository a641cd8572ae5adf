package reduce

import (
	"time"

	"github.com/dreamware/fanoutsearch/internal/resp"
)

// ProfileOptions carries the flags profile stitching needs to locate each
// shard's profile payload within its reply ("Profile
// stitching" paragraph).
type ProfileOptions struct {
	Protocol   int
	WithCursor bool
}

// ShardProfile is one shard's opaque profile payload, tagged with the
// shard it came from.
type ShardProfile struct {
	ShardIndex int
	Payload    resp.Reply
}

// CoordinatorProfile is the coordinator's own contribution to a stitched
// profile: wall-clock spent waiting on shards plus post-processing
// (reduction, sorting, emission).
type CoordinatorProfile struct {
	TotalElapsed       time.Duration
	PostProcessElapsed time.Duration
}

// ExtractShardProfile pulls one shard's profile payload out of a decoded
// FT.PROFILE reply, at the offset that depends on protocol and on whether
// a cursor is in play (RESP2: reply element 1, or 2 when a cursor id
// trails the results; RESP3: the profile.Shards[0] key).
func ExtractShardProfile(reply resp.Reply, opts ProfileOptions) resp.Reply {
	if opts.Protocol >= 3 {
		m, ok := resp.AsMap(reply)
		if !ok {
			return nil
		}
		profile, ok := resp.AsMap(m["profile"])
		if !ok {
			return nil
		}
		shards, ok := resp.AsArray(profile["Shards"])
		if !ok || len(shards) == 0 {
			return nil
		}
		return shards[0]
	}

	arr, ok := resp.AsArray(reply)
	if !ok {
		return nil
	}
	idx := 1
	if opts.WithCursor {
		idx = 2
	}
	if idx >= len(arr) {
		return nil
	}
	return arr[idx]
}

// EmitProfileReply wraps an already-emitted result (from EmitSearchReply
// or an aggregate row set) together with the per-shard profiles and the
// coordinator's own timing, in the client's requested protocol shape.
func EmitProfileReply(result resp.Reply, shards []ShardProfile, coord CoordinatorProfile, opts ProfileOptions) resp.Reply {
	shardPayloads := make([]interface{}, len(shards))
	for i, s := range shards {
		shardPayloads[i] = s.Payload
	}
	coordBlock := map[string]interface{}{
		"total_profile_time":          coord.TotalElapsed.Seconds() * 1000,
		"post_processing_profile_time": coord.PostProcessElapsed.Seconds() * 1000,
	}

	if opts.Protocol >= 3 {
		return map[string]interface{}{
			"Results": result,
			"Profile": map[string]interface{}{
				"Shards":      shardPayloads,
				"Coordinator": coordBlock,
			},
		}
	}

	return []interface{}{
		result,
		[]interface{}{shardPayloads, coordBlock},
	}
}
