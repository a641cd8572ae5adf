package reduce

import "github.com/dreamware/fanoutsearch/internal/resp"

// parseSearchReply extracts a shard's total_results and per-result rows
// from a decoded FT.SEARCH reply, dispatching on protocol version.
func parseSearchReply(reply resp.Reply, opts SearchOptions) (total int64, rows []SearchResult, err error) {
	if opts.Protocol >= 3 {
		return parseSearchReplyResp3(reply, opts)
	}
	return parseSearchReplyResp2(reply, opts)
}

// parseSearchReplyResp2 walks the RESP2 flat-array shape:
// [total_results, id1, <score>, <payload>, <sort_key>, fields1, id2, ...].
func parseSearchReplyResp2(reply resp.Reply, opts SearchOptions) (int64, []SearchResult, error) {
	arr, ok := resp.AsArray(reply)
	if !ok || len(arr) == 0 {
		return 0, nil, resp.ErrParseError
	}
	total, ok := resp.AsInt(arr[0])
	if !ok {
		return 0, nil, resp.ErrParseError
	}

	var rows []SearchResult
	i := 1
	for i < len(arr) {
		id, ok := resp.AsString(arr[i])
		if !ok {
			return 0, nil, resp.ErrParseError
		}
		i++
		r := SearchResult{DocID: id}

		if opts.WithScores && i < len(arr) {
			if score, ok := resp.AsScore(arr[i]); ok {
				r.Score = score
			}
			i++
		}
		if opts.WithPayloads && i < len(arr) {
			if payload, ok := resp.AsString(arr[i]); ok {
				r.Payload = []byte(payload)
				r.HasPayload = true
			}
			i++
		}
		if opts.WithSortKeys && i < len(arr) {
			r.HasSortKey = true
			if num, ok := resp.AsScore(arr[i]); ok {
				r.SortKeyNum = num
				r.HasSortKeyNum = true
			} else if s, ok := resp.AsString(arr[i]); ok {
				r.SortKeyStr = s
			}
			i++
		}
		if i < len(arr) {
			if fields, ok := resp.AsArray(arr[i]); ok {
				r.Fields = flattenFields(fields, opts.FormatExpand)
			}
			i++
		}
		rows = append(rows, r)
	}
	return total, rows, nil
}

// parseSearchReplyResp3 walks the RESP3 map shape:
// {total_results: N, results: [{id, score, payload, sort_key,
// extra_attributes: {...}}, ...], format, warning, attributes}.
func parseSearchReplyResp3(reply resp.Reply, opts SearchOptions) (int64, []SearchResult, error) {
	m, ok := resp.AsMap(reply)
	if !ok {
		return 0, nil, resp.ErrParseError
	}
	total, ok := resp.AsInt(m["total_results"])
	if !ok {
		return 0, nil, resp.ErrParseError
	}
	resultsArr, ok := resp.AsArray(m["results"])
	if !ok {
		return total, nil, nil
	}

	var rows []SearchResult
	for _, item := range resultsArr {
		rm, ok := resp.AsMap(item)
		if !ok {
			continue
		}
		id, _ := resp.AsString(rm["id"])
		r := SearchResult{DocID: id}
		if opts.WithScores {
			if score, ok := resp.AsScore(rm["score"]); ok {
				r.Score = score
			}
		}
		if opts.WithPayloads {
			if payload, ok := resp.AsString(rm["payload"]); ok {
				r.Payload = []byte(payload)
				r.HasPayload = true
			}
		}
		if opts.WithSortKeys {
			if sk, present := rm["sort_key"]; present {
				r.HasSortKey = true
				if num, ok := resp.AsScore(sk); ok {
					r.SortKeyNum = num
					r.HasSortKeyNum = true
				} else if s, ok := resp.AsString(sk); ok {
					r.SortKeyStr = s
				}
			}
		}
		if fields, ok := resp.AsMap(rm["extra_attributes"]); ok {
			r.Fields = fields
		}
		rows = append(rows, r)
	}
	return total, rows, nil
}

// flattenFields converts a RESP2 flat [name1, value1, name2, value2, ...]
// array into a map. Under FORMAT EXPAND the input is instead an array of
// [name, value] pairs (the original_source/ supplement described in
// SPEC_FULL.md), read into the same map; emitRow rebuilds the pair shape
// on output.
func flattenFields(arr []interface{}, expand bool) map[string]interface{} {
	out := make(map[string]interface{})
	if expand {
		for _, pair := range arr {
			p, ok := resp.AsArray(pair)
			if !ok || len(p) != 2 {
				continue
			}
			name, _ := resp.AsString(p[0])
			out[name] = p[1]
		}
		return out
	}
	for i := 0; i+1 < len(arr); i += 2 {
		name, _ := resp.AsString(arr[i])
		out[name] = arr[i+1]
	}
	return out
}
