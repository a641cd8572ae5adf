package reduce

// SearchResult is one merge entry. Ordering is decided externally by a
// Comparator — this type only carries the fields a comparator or
// emitter might need.
type SearchResult struct {
	DocID         string
	Score         float64
	ExplainScores []string
	Fields        map[string]interface{}
	Payload       []byte
	HasPayload    bool
	SortKeyStr    string
	SortKeyNum    float64
	HasSortKeyNum bool
	HasSortKey    bool
	ShardIndex    int
}

// Comparator reports whether a ranks strictly better than b (should be
// emitted earlier). Comparators must be total orders for the top-K heap
// to behave; ties are expected to be broken on DocID by the comparator
// itself, not left ambiguous.
type Comparator func(a, b SearchResult) bool

// ScoreComparator orders by descending score, ties broken by reverse
// lexicographic DocID: larger id first, for parity with single-shard
// ordering.
func ScoreComparator() Comparator {
	return func(a, b SearchResult) bool {
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.DocID > b.DocID
	}
}

// SortByComparator orders by the SORTBY sort key: numeric keys win over
// string keys, missing keys sort last, direction controlled by asc, ties
// broken by reverse DocID.
func SortByComparator(asc bool) Comparator {
	return func(a, b SearchResult) bool {
		if a.HasSortKey != b.HasSortKey {
			return a.HasSortKey // present beats missing; missing sorts last
		}
		if !a.HasSortKey && !b.HasSortKey {
			return a.DocID > b.DocID
		}
		if a.HasSortKeyNum != b.HasSortKeyNum {
			return a.HasSortKeyNum // numeric wins over string
		}
		var less bool
		if a.HasSortKeyNum {
			less = a.SortKeyNum < b.SortKeyNum
			if a.SortKeyNum == b.SortKeyNum {
				return a.DocID > b.DocID
			}
		} else {
			less = a.SortKeyStr < b.SortKeyStr
			if a.SortKeyStr == b.SortKeyStr {
				return a.DocID > b.DocID
			}
		}
		if asc {
			return less
		}
		return !less
	}
}

// KNNComparator orders by ascending vector distance stored in SortKeyNum
// (the KNN inner heap always sorts by distance regardless of the
// client's SORTBY), ties broken by reverse DocID.
func KNNComparator() Comparator {
	return func(a, b SearchResult) bool {
		if a.SortKeyNum != b.SortKeyNum {
			return a.SortKeyNum < b.SortKeyNum
		}
		return a.DocID > b.DocID
	}
}
