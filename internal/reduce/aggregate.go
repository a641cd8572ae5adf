package reduce

import (
	"sort"
	"time"

	"github.com/dreamware/fanoutsearch/internal/cursor"
	"github.com/dreamware/fanoutsearch/internal/dispatch"
	"github.com/dreamware/fanoutsearch/internal/resp"
)

// AggregateOptions carries the client-visible flags the aggregate driver
// needs.
type AggregateOptions struct {
	NumShards      int
	ChannelCap     int
	ReplyThreshold int
	WithCount      bool
	Protocol       int

	// Profiled marks a reply produced under FT.PROFILE, whose top level is
	// the profile envelope rather than the bare aggregate reply; used only
	// by NewAggregateReducer's single-round profiling path, never by
	// RunAggregate's cursor-streaming path.
	Profiled bool
}

// AggregateResult is the accumulated output of one FT.AGGREGATE pull
// cycle: every row pulled from every shard's cursor, in arrival order (no
// cross-shard merge — aggregate rows are not comparable the way search
// rows are).
type AggregateResult struct {
	Rows  []map[string]interface{}
	Total int64
}

// RunAggregate drives an Iterator to exhaustion for FT.AGGREGATE: it
// dispatches the initial round via send, pulls rows off the iterator's
// channel, triggers subsequent cursor rounds as shards
// deplete their buffers, and — when WithCount is set — withholds every
// row until CountBarrier reports every shard's first-round total has
// arrived.
func RunAggregate(send cursor.ShardSender, perShardCmd *resp.Command, opts AggregateOptions, deadline time.Time) (*AggregateResult, error) {
	it := cursor.Start(send, perShardCmd, opts.NumShards, channelCapacity(opts))
	defer it.Release()

	var barrier *cursor.CountBarrier
	if opts.WithCount {
		barrier = cursor.NewCountBarrier(opts.NumShards)
	}

	result := &AggregateResult{}
	var firstErr error
	var pendingRows []map[string]interface{}

	for {
		entry, ok, err := it.Pop(deadline)
		if err != nil {
			it.SetTimedOut()
			if firstErr == nil {
				firstErr = err
			}
			break
		}
		if !ok {
			break
		}

		if entry.Err != nil {
			if firstErr == nil {
				firstErr = entry.Err
			}
			if barrier != nil {
				barrier.Notify(entry.ShardIndex, 0, true)
			}
		} else if msg, isErr := resp.IsError(entry.Reply); isErr {
			if firstErr == nil && !resp.IsShardTimeout(msg) {
				firstErr = resp.ErrParseError
			}
			if barrier != nil {
				barrier.Notify(entry.ShardIndex, 0, true)
			}
		} else {
			total, rows := parseAggregateReply(entry.Reply, opts)
			if barrier != nil {
				barrier.Notify(entry.ShardIndex, total, false)
			} else {
				result.Total += total
			}
			pendingRows = append(pendingRows, rows...)
		}

		if barrier == nil || barrier.Ready() {
			if barrier != nil && !barrier.HasShardError() {
				result.Total = barrier.Total()
			}
			result.Rows = append(result.Rows, pendingRows...)
			pendingRows = nil
		}

		if !it.MaybeTriggerNext(opts.ReplyThreshold) {
			break
		}
	}

	if firstErr != nil {
		return nil, firstErr
	}
	return result, nil
}

// NewAggregateReducer returns a dispatch.ReducerFunc for FT.PROFILE ...
// AGGREGATE: a single fanout round (no cursor streaming) whose replies are
// profile envelopes rather than bare aggregate replies. This is a narrower
// path than RunAggregate — profiling an aggregate that also streams via
// WITHCURSOR is not supported.
func NewAggregateReducer(opts AggregateOptions) dispatch.ReducerFunc {
	return func(ctx *dispatch.Context) (resp.Reply, error) {
		if ctx.Expected() == 0 {
			return nil, resp.ErrClusterDown
		}

		result := &AggregateResult{}
		var firstErr error

		for _, entry := range ctx.Replies() {
			if entry.Err != nil {
				if firstErr == nil {
					firstErr = entry.Err
				}
				continue
			}
			reply := entry.Reply
			if opts.Profiled {
				reply = ExtractShardProfile(reply, ProfileOptions{Protocol: opts.Protocol})
			}
			if msg, isErr := resp.IsError(reply); isErr {
				if firstErr == nil && !resp.IsShardTimeout(msg) {
					firstErr = resp.ErrParseError
				}
				continue
			}
			total, rows := parseAggregateReply(reply, opts)
			result.Total += total
			result.Rows = append(result.Rows, rows...)
		}

		if firstErr != nil {
			return nil, firstErr
		}
		return EmitAggregateReply(result, opts.Protocol), nil
	}
}

// EmitAggregateReply builds the coordinator's reply shape for a merged
// aggregate result, mirroring EmitSearchReply's protocol dispatch.
func EmitAggregateReply(result *AggregateResult, protocol int) resp.Reply {
	if protocol >= 3 {
		rows := make([]interface{}, len(result.Rows))
		for i, r := range result.Rows {
			rows[i] = r
		}
		return map[string]interface{}{
			"total_results": result.Total,
			"results":       rows,
		}
	}
	out := make([]interface{}, 0, 1+len(result.Rows))
	out = append(out, result.Total)
	for _, r := range result.Rows {
		out = append(out, flattenRowToArray(r))
	}
	return out
}

func flattenRowToArray(row map[string]interface{}) []interface{} {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]interface{}, 0, len(row)*2)
	for _, k := range keys {
		out = append(out, k, row[k])
	}
	return out
}

func channelCapacity(opts AggregateOptions) int {
	if opts.ChannelCap > 0 {
		return opts.ChannelCap
	}
	return opts.NumShards * 2
}

// parseAggregateReply extracts a shard's row count and rows from one
// FT.CURSOR READ / FT.AGGREGATE reply round. Aggregate rows are opaque
// name/value groups (no score/sort key framing like search rows), so
// parsing only needs to peel off the cursor id and total, mirroring
// parseSearchReplyResp2/3's offset handling without the scoring fields.
func parseAggregateReply(reply resp.Reply, opts AggregateOptions) (int64, []map[string]interface{}) {
	if opts.Protocol >= 3 {
		return parseAggregateReplyResp3(reply)
	}
	return parseAggregateReplyResp2(reply)
}

func parseAggregateReplyResp2(reply resp.Reply) (int64, []map[string]interface{}) {
	arr, ok := resp.AsArray(reply)
	if !ok || len(arr) == 0 {
		return 0, nil
	}
	// When a cursor is active the shard wraps its results as
	// [results_array, cursor_id]; unwrap to the results_array before
	// reading [total_results, row1, row2, ...] out of it.
	if len(arr) == 2 {
		if _, isCursorID := resp.AsInt(arr[1]); isCursorID {
			if inner, ok := resp.AsArray(arr[0]); ok {
				arr = inner
			}
		}
	}
	if len(arr) == 0 {
		return 0, nil
	}
	total, _ := resp.AsInt(arr[0])
	rows := make([]map[string]interface{}, 0, len(arr)-1)
	for _, item := range arr[1:] {
		if fields, ok := resp.AsArray(item); ok {
			rows = append(rows, flattenFields(fields, false))
		}
	}
	return total, rows
}

func parseAggregateReplyResp3(reply resp.Reply) (int64, []map[string]interface{}) {
	m, ok := resp.AsMap(reply)
	if !ok {
		return 0, nil
	}
	total, _ := resp.AsInt(m["total_results"])
	resultsArr, ok := resp.AsArray(m["results"])
	if !ok {
		return total, nil
	}
	rows := make([]map[string]interface{}, 0, len(resultsArr))
	for _, item := range resultsArr {
		if rm, ok := resp.AsMap(item); ok {
			rows = append(rows, rm)
		}
	}
	return total, rows
}
