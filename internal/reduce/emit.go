package reduce

// EmitSearchReply builds the coordinator's own reply shape from the
// merged rows, in the client's requested protocol. The return value is
// intentionally a plain Go value tree (not yet RESP-encoded) so the
// front-end transport can encode it with resp.Encode's counterpart for
// replies, or a test can assert on it directly.
func EmitSearchReply(totalResults int64, rows []SearchResult, opts SearchOptions) interface{} {
	if opts.Protocol >= 3 {
		return emitResp3(totalResults, rows, opts)
	}
	return emitResp2(totalResults, rows, opts)
}

func emitResp2(totalResults int64, rows []SearchResult, opts SearchOptions) []interface{} {
	out := make([]interface{}, 0, 1+len(rows)*2)
	out = append(out, totalResults)
	for _, r := range rows {
		out = append(out, r.DocID)
		if opts.WithScores {
			out = append(out, r.Score)
		}
		if opts.WithPayloads {
			out = append(out, r.Payload)
		}
		if opts.WithSortKeys {
			if r.HasSortKeyNum {
				out = append(out, r.SortKeyNum)
			} else {
				out = append(out, r.SortKeyStr)
			}
		}
		out = append(out, emitRow(r, opts.FormatExpand))
	}
	return out
}

// emitRow re-emits each field as a nested [name, value] pair under FORMAT
// EXPAND, rather than reflattening it into name/value pairs (the
// original_source/ supplement in SPEC_FULL.md). Fields come from a map,
// so their order follows map iteration, not the shard's reply.
func emitRow(r SearchResult, expand bool) interface{} {
	if !expand {
		flat := make([]interface{}, 0, len(r.Fields)*2)
		for name, value := range r.Fields {
			flat = append(flat, name, value)
		}
		return flat
	}
	pairs := make([]interface{}, 0, len(r.Fields))
	for name, value := range r.Fields {
		pairs = append(pairs, []interface{}{name, value})
	}
	return pairs
}

func emitResp3(totalResults int64, rows []SearchResult, opts SearchOptions) map[string]interface{} {
	results := make([]interface{}, 0, len(rows))
	for _, r := range rows {
		item := map[string]interface{}{
			"id":                r.DocID,
			"extra_attributes": r.Fields,
		}
		if opts.WithScores {
			item["score"] = r.Score
		}
		if opts.WithPayloads {
			item["payload"] = r.Payload
		}
		if opts.WithSortKeys {
			if r.HasSortKeyNum {
				item["sort_key"] = r.SortKeyNum
			} else {
				item["sort_key"] = r.SortKeyStr
			}
		}
		results = append(results, item)
	}
	format := "STRING"
	if opts.FormatExpand {
		format = "EXPAND"
	}
	return map[string]interface{}{
		"attributes":    []interface{}{},
		"total_results": totalResults,
		"format":        format,
		"results":       results,
	}
}
