package reduce

import (
	"errors"
	"sort"
	"strconv"

	"github.com/dreamware/fanoutsearch/internal/dispatch"
	"github.com/dreamware/fanoutsearch/internal/resp"
)

// infoSumKeys names the FT.INFO counters that are additive across shards;
// everything else keeps the first shard's value (index-definition fields
// like index_name don't vary per shard).
var infoSumKeys = map[string]bool{
	"num_docs":                    true,
	"num_records":                 true,
	"num_terms":                   true,
	"inverted_sz_mb":              true,
	"vector_index_sz_mb":          true,
	"total_inverted_index_blocks": true,
	"hash_indexing_failures":      true,
}

// InfoReducer merges N shards' FT.INFO replies, summing the counters named
// in infoSumKeys and keeping the first shard's value for everything else.
func InfoReducer() dispatch.ReducerFunc {
	return func(ctx *dispatch.Context) (resp.Reply, error) {
		entries := ctx.Replies()
		if len(entries) == 0 {
			return nil, resp.ErrClusterDown
		}

		merged := make(map[string]interface{})
		var order []string
		var firstErr error

		for _, e := range entries {
			if e.Err != nil {
				if firstErr == nil {
					firstErr = e.Err
				}
				continue
			}
			if msg, isErr := resp.IsError(e.Reply); isErr {
				if firstErr == nil && !resp.IsShardTimeout(msg) {
					firstErr = errors.New(msg)
				}
				continue
			}
			arr, ok := resp.AsArray(e.Reply)
			if !ok {
				continue
			}
			for i := 0; i+1 < len(arr); i += 2 {
				key, _ := resp.AsString(arr[i])
				if key == "" {
					continue
				}
				if _, seen := merged[key]; !seen {
					order = append(order, key)
					merged[key] = arr[i+1]
					continue
				}
				if infoSumKeys[key] {
					merged[key] = sumNumeric(merged[key], arr[i+1])
				}
			}
		}
		if firstErr != nil {
			return nil, firstErr
		}

		out := make([]interface{}, 0, len(order)*2)
		for _, k := range order {
			out = append(out, k, merged[k])
		}
		return out, nil
	}
}

func sumNumeric(acc interface{}, next resp.Reply) interface{} {
	a, _ := resp.AsScore(acc)
	b, ok := resp.AsScore(next)
	if !ok {
		return acc
	}
	return a + b
}

// SpellcheckReducer merges N shards' FT.SPELLCHECK replies, unioning the
// suggestion set per mistyped term and keeping the best (highest) score
// seen for each suggestion across shards.
func SpellcheckReducer() dispatch.ReducerFunc {
	return func(ctx *dispatch.Context) (resp.Reply, error) {
		entries := ctx.Replies()
		if len(entries) == 0 {
			return nil, resp.ErrClusterDown
		}

		var order []string
		bestByTerm := make(map[string]map[string]float64)
		var firstErr error

		for _, e := range entries {
			if e.Err != nil {
				if firstErr == nil {
					firstErr = e.Err
				}
				continue
			}
			if msg, isErr := resp.IsError(e.Reply); isErr {
				if firstErr == nil && !resp.IsShardTimeout(msg) {
					firstErr = errors.New(msg)
				}
				continue
			}
			rows, ok := resp.AsArray(e.Reply)
			if !ok {
				continue
			}
			for _, row := range rows {
				pair, ok := resp.AsArray(row)
				if !ok || len(pair) != 2 {
					continue
				}
				term, _ := resp.AsString(pair[0])
				if term == "" {
					continue
				}
				suggestions, ok := resp.AsArray(pair[1])
				if !ok {
					continue
				}
				best, seen := bestByTerm[term]
				if !seen {
					best = make(map[string]float64)
					bestByTerm[term] = best
					order = append(order, term)
				}
				for _, s := range suggestions {
					sp, ok := resp.AsArray(s)
					if !ok || len(sp) != 2 {
						continue
					}
					score, _ := resp.AsScore(sp[0])
					word, _ := resp.AsString(sp[1])
					if word == "" {
						continue
					}
					if cur, exists := best[word]; !exists || score > cur {
						best[word] = score
					}
				}
			}
		}
		if firstErr != nil {
			return nil, firstErr
		}

		out := make([]interface{}, 0, len(order))
		for _, term := range order {
			best := bestByTerm[term]
			words := make([]string, 0, len(best))
			for w := range best {
				words = append(words, w)
			}
			sort.Slice(words, func(i, j int) bool { return best[words[i]] > best[words[j]] })
			suggestions := make([]interface{}, 0, len(words))
			for _, w := range words {
				suggestions = append(suggestions, []interface{}{formatScore(best[w]), w})
			}
			out = append(out, []interface{}{term, suggestions})
		}
		return out, nil
	}
}

// MGetReducer merges N shards' FT.MGET replies positionally: each shard
// returns one value per requested key, nil for keys it doesn't own, so the
// merge keeps the first non-nil value seen at each position.
func MGetReducer(numKeys int) dispatch.ReducerFunc {
	return func(ctx *dispatch.Context) (resp.Reply, error) {
		entries := ctx.Replies()
		if len(entries) == 0 {
			return nil, resp.ErrClusterDown
		}

		merged := make([]interface{}, numKeys)
		var firstErr error
		for _, e := range entries {
			if e.Err != nil {
				if firstErr == nil {
					firstErr = e.Err
				}
				continue
			}
			if msg, isErr := resp.IsError(e.Reply); isErr {
				if firstErr == nil && !resp.IsShardTimeout(msg) {
					firstErr = errors.New(msg)
				}
				continue
			}
			arr, ok := resp.AsArray(e.Reply)
			if !ok {
				continue
			}
			for i := 0; i < numKeys && i < len(arr); i++ {
				if merged[i] == nil && arr[i] != nil {
					merged[i] = arr[i]
				}
			}
		}
		if firstErr != nil {
			return nil, firstErr
		}
		return merged, nil
	}
}

// TagvalsReducer merges N shards' FT.TAGVALS replies into the union of
// distinct tag values, sorted for deterministic output.
func TagvalsReducer() dispatch.ReducerFunc {
	return func(ctx *dispatch.Context) (resp.Reply, error) {
		entries := ctx.Replies()
		if len(entries) == 0 {
			return nil, resp.ErrClusterDown
		}

		seen := make(map[string]bool)
		var firstErr error
		for _, e := range entries {
			if e.Err != nil {
				if firstErr == nil {
					firstErr = e.Err
				}
				continue
			}
			if msg, isErr := resp.IsError(e.Reply); isErr {
				if firstErr == nil && !resp.IsShardTimeout(msg) {
					firstErr = errors.New(msg)
				}
				continue
			}
			arr, ok := resp.AsArray(e.Reply)
			if !ok {
				continue
			}
			for _, v := range arr {
				if s, ok := resp.AsString(v); ok {
					seen[s] = true
				}
			}
		}
		if firstErr != nil {
			return nil, firstErr
		}

		vals := make([]string, 0, len(seen))
		for v := range seen {
			vals = append(vals, v)
		}
		sort.Strings(vals)
		out := make([]interface{}, len(vals))
		for i, v := range vals {
			out[i] = v
		}
		return out, nil
	}
}

// AgreementReducer implements the "all masters must agree" shape used by
// FT.CREATE/ALTER/DROPINDEX/DICTADD: the first shard error wins, otherwise
// the reducer reports "OK".
func AgreementReducer() dispatch.ReducerFunc {
	return func(ctx *dispatch.Context) (resp.Reply, error) {
		entries := ctx.Replies()
		if len(entries) == 0 {
			return nil, resp.ErrClusterDown
		}
		for _, e := range entries {
			if e.Err != nil {
				return nil, e.Err
			}
			if msg, isErr := resp.IsError(e.Reply); isErr {
				return nil, errors.New(msg)
			}
		}
		return "OK", nil
	}
}

func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
