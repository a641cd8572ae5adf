package dispatch

import (
	"bytes"
	"strconv"

	"github.com/dreamware/fanoutsearch/internal/resp"
)

// SearchFlags captures the client-supplied flags that affect both
// command rewriting and reducer parsing. Dispatch and reduce share this
// type so parsing offsets stay in lock-step with the rewrite that
// produced them.
type SearchFlags struct {
	WithScores    bool
	WithPayloads  bool
	WithSortKeys  bool
	SortByField   string
	SortAsc       bool
	Limit         int
	Offset        int
	KNNField      string
	KNNCount      int
	FormatExpand  bool
}

// RewriteSearch turns a client-facing FT.SEARCH into its shard-private
// variant: prefixes the verb with "_", rewrites "LIMIT o l" to
// "LIMIT 0 (o+l)" so every shard returns the full top window, and injects
// WITHSCORES when the client did not specify SORTBY (so the coordinator
// can still merge by score). DIALECT and PARAMS blocks are left
// untouched — they are cloned onto every shard command verbatim since
// they only affect shard-side parsing, required to avoid corrupting
// those blocks during rewrite.
func RewriteSearch(client *resp.Command, flags SearchFlags) (*resp.Command, error) {
	shard := client.Clone()
	shard.RewriteVerb("_" + client.Verb())
	shard.Root = resp.RootRead

	args := shard.Args()
	if pos, ok := findLimitClause(args); ok {
		if pos+2 >= len(args) {
			return nil, resp.ErrWrongArity
		}
		o, errO := strconv.Atoi(string(args[pos+1]))
		l, errL := strconv.Atoi(string(args[pos+2]))
		if errO != nil || errL != nil {
			return nil, resp.ErrWrongArity
		}
		shard.SetArg(pos+1, []byte("0"))
		shard.SetArg(pos+2, []byte(strconv.Itoa(o+l)))
	}

	if flags.SortByField == "" && !flags.WithScores {
		shard = appendArg(shard, "WITHSCORES")
	}
	return shard, nil
}

// findLimitClause walks args looking for the genuine LIMIT clause keyword,
// skipping over the other clauses that can carry a trailing token spelled
// "limit" without meaning it: args[0] is the verb, args[1] the index name,
// args[2] the query string, so the scan starts past all three; SORTBY's
// field name (plus an optional ASC/DESC) and RETURN's field list are
// skipped wholesale rather than inspected, so a field literally named
// "limit" is never mistaken for the clause keyword.
func findLimitClause(args [][]byte) (pos int, ok bool) {
	for i := 3; i < len(args); i++ {
		switch {
		case bytes.EqualFold(args[i], []byte("LIMIT")):
			return i, true
		case bytes.EqualFold(args[i], []byte("SORTBY")) && i+1 < len(args):
			i++
			if i+1 < len(args) && (bytes.EqualFold(args[i+1], []byte("ASC")) || bytes.EqualFold(args[i+1], []byte("DESC"))) {
				i++
			}
		case bytes.EqualFold(args[i], []byte("RETURN")) && i+1 < len(args):
			if n, err := strconv.Atoi(string(args[i+1])); err == nil {
				i += 1 + n
			} else {
				i++
			}
		}
	}
	return 0, false
}

// appendArg clones cmd with one extra trailing argument; SetArg cannot
// grow the argument vector, only rewrite an existing slot, so rewriting
// that needs to inject a brand new flag goes through this helper instead.
func appendArg(cmd *resp.Command, arg string) *resp.Command {
	grown := resp.New(cmd.Verb(), append(cmd.Args()[1:], []byte(arg))...)
	grown.TargetShard = cmd.TargetShard
	grown.ProtocolVersion = cmd.ProtocolVersion
	grown.ForCursor = cmd.ForCursor
	grown.ForProfiling = cmd.ForProfiling
	grown.Root = cmd.Root
	return grown
}

// RewriteAggregate mirrors RewriteSearch for FT.AGGREGATE: shard-private
// prefix only — FT.AGGREGATE has no client-visible LIMIT-window quirk
// since the coordinator streams rows via the cursor iterator rather than
// truncating to a single top-K window.
func RewriteAggregate(client *resp.Command) *resp.Command {
	shard := client.Clone()
	shard.RewriteVerb("_" + client.Verb())
	shard.Root = resp.RootAggregate
	return shard
}
