package reduce

import (
	"errors"

	"github.com/dreamware/fanoutsearch/internal/dispatch"
	"github.com/dreamware/fanoutsearch/internal/resp"
)

// SearchOptions carries the client-visible flags the reducer needs,
// mirroring dispatch.SearchFlags so reduce does not need to import
// dispatch's rewrite internals — only the flag values agreed on at
// rewrite time.
type SearchOptions struct {
	WithScores   bool
	WithPayloads bool
	WithSortKeys bool
	WithSortBy   bool
	SortAsc      bool
	Limit        int
	Offset       int
	KNNField     string
	KNNCount     int
	FormatExpand bool
	Protocol     int // 2 or 3
}

// NewSearchReducer returns a dispatch.ReducerFunc that merges N shard
// replies to a rewritten FT.SEARCH via a top-K heap, with KNN
// specialization when opts.KNNCount > 0.
func NewSearchReducer(opts SearchOptions) dispatch.ReducerFunc {
	return func(ctx *dispatch.Context) (resp.Reply, error) {
		if ctx.Expected() == 0 {
			return nil, resp.ErrClusterDown
		}

		comparator := ScoreComparator()
		if opts.WithSortBy {
			comparator = SortByComparator(opts.SortAsc)
		}

		capacity := opts.Limit + opts.Offset
		if capacity < 1 {
			capacity = 1
		}
		mainHeap := NewTopKHeap(capacity, comparator)

		var knnHeap *TopKHeap
		if opts.KNNCount > 0 {
			knnHeap = NewTopKHeap(opts.KNNCount, KNNComparator())
		}

		var totalResults int64
		var firstErr error

		for _, entry := range ctx.Replies() {
			if entry.Err != nil {
				if firstErr == nil {
					firstErr = entry.Err
				}
				continue
			}
			if msg, isErr := resp.IsError(entry.Reply); isErr {
				if firstErr == nil && !resp.IsShardTimeout(msg) {
					firstErr = errors.New(msg)
				}
				continue
			}

			total, rows, err := parseSearchReply(entry.Reply, opts)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			totalResults += total
			for _, r := range rows {
				r.ShardIndex = entry.ShardIndex
				if knnHeap != nil {
					knnHeap.Offer(r)
					continue
				}
				if !mainHeap.Better(r) {
					// Results are shard-sorted already; once a shard's
					// next candidate can't improve the worst kept entry,
					// the rest of that shard's rows can't either.
					if opts.WithSortBy {
						break
					}
				}
				mainHeap.Offer(r)
			}
		}

		if firstErr != nil {
			return nil, firstErr
		}

		if knnHeap != nil {
			for _, r := range knnHeap.Drain() {
				mainHeap.Offer(r)
			}
			totalResults = int64(mainHeap.Len())
		}

		rows := mainHeap.Drain()
		if len(rows) > opts.Offset {
			rows = rows[opts.Offset:]
		} else {
			rows = nil
		}
		if len(rows) > opts.Limit {
			rows = rows[:opts.Limit]
		}

		return EmitSearchReply(totalResults, rows, opts), nil
	}
}
