package coordinator

import (
	"bytes"
	"regexp"
	"strconv"

	"github.com/dreamware/fanoutsearch/internal/dispatch"
	"github.com/dreamware/fanoutsearch/internal/reduce"
)

// knnPattern extracts the k and vector field name out of a KNN clause
// embedded in a query string, e.g. "* =>[KNN 2 @v $B]". Full query-language
// parsing is out of scope — the reducer sizes its KNN heap from k; the
// shard does the actual nearest-neighbor search. The field name is
// recorded in the flags but the reducer does not read it: the KNN heap
// is ordered by each row's numeric sort key (SortKeyNum), not by a field
// looked up under that name.
var knnPattern = regexp.MustCompile(`(?i)KNN\s+(\d+)\s+@(\S+)`)

// parseSearchFlags scans a client FT.SEARCH argument vector for the flags
// both the command-rewrite step and the reducer need, keeping
// dispatch.SearchFlags and reduce.SearchOptions in lock-step since they
// describe the same client request from two different packages' points of
// view.
func parseSearchFlags(args [][]byte, protocol int) (dispatch.SearchFlags, reduce.SearchOptions) {
	flags := dispatch.SearchFlags{Limit: 10, SortAsc: true}
	opts := reduce.SearchOptions{Limit: 10, SortAsc: true, Protocol: protocol}

	for i := 1; i < len(args); i++ {
		switch {
		case bytes.EqualFold(args[i], []byte("WITHSCORES")):
			flags.WithScores, opts.WithScores = true, true
		case bytes.EqualFold(args[i], []byte("WITHPAYLOADS")):
			flags.WithPayloads, opts.WithPayloads = true, true
		case bytes.EqualFold(args[i], []byte("WITHSORTKEYS")):
			flags.WithSortKeys, opts.WithSortKeys = true, true
		case bytes.EqualFold(args[i], []byte("LIMIT")) && i+2 < len(args):
			if o, err := strconv.Atoi(string(args[i+1])); err == nil {
				flags.Offset, opts.Offset = o, o
			}
			if l, err := strconv.Atoi(string(args[i+2])); err == nil {
				flags.Limit, opts.Limit = l, l
			}
			i += 2
		case bytes.EqualFold(args[i], []byte("SORTBY")) && i+1 < len(args):
			flags.SortByField = string(args[i+1])
			opts.WithSortBy = true
			i++
			if i+1 < len(args) {
				switch {
				case bytes.EqualFold(args[i+1], []byte("DESC")):
					flags.SortAsc, opts.SortAsc = false, false
					i++
				case bytes.EqualFold(args[i+1], []byte("ASC")):
					i++
				}
			}
		case bytes.EqualFold(args[i], []byte("FORMAT")) && i+1 < len(args):
			if bytes.EqualFold(args[i+1], []byte("EXPAND")) {
				flags.FormatExpand, opts.FormatExpand = true, true
			}
			i++
		}
	}

	if len(args) > 2 {
		if m := knnPattern.FindSubmatch(args[2]); m != nil {
			if k, err := strconv.Atoi(string(m[1])); err == nil {
				flags.KNNCount, opts.KNNCount = k, k
				flags.KNNField, opts.KNNField = string(m[2]), string(m[2])
			}
		}
	}

	return flags, opts
}

// hasToken reports whether name appears verbatim (case-insensitively) in
// args, used for the standalone boolean flags (WITHCOUNT, WITHCURSOR)
// that don't carry a following value parseSearchFlags would otherwise
// need to skip.
func hasToken(args [][]byte, name string) bool {
	for _, a := range args {
		if bytes.EqualFold(a, []byte(name)) {
			return true
		}
	}
	return false
}
