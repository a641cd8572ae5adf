package dispatch

import (
	"testing"

	"github.com/dreamware/fanoutsearch/internal/resp"
)

func argsToStrings(c *resp.Command) []string {
	args := c.Args()
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = string(a)
	}
	return out
}

func TestRewriteSearchPrefixesVerb(t *testing.T) {
	client := resp.New("FT.SEARCH", []byte("idx"), []byte("hello"))
	shard, err := RewriteSearch(client, SearchFlags{})
	if err != nil {
		t.Fatalf("RewriteSearch() error = %v", err)
	}
	if shard.Verb() != "_FT.SEARCH" {
		t.Errorf("Verb() = %q, want _FT.SEARCH", shard.Verb())
	}
	if client.Verb() != "FT.SEARCH" {
		t.Errorf("RewriteSearch mutated the client command's verb: %q", client.Verb())
	}
}

func TestRewriteSearchExpandsLimitWindow(t *testing.T) {
	client := resp.New("FT.SEARCH", []byte("idx"), []byte("hello"),
		[]byte("LIMIT"), []byte("10"), []byte("5"))
	shard, err := RewriteSearch(client, SearchFlags{})
	if err != nil {
		t.Fatalf("RewriteSearch() error = %v", err)
	}

	args := argsToStrings(shard)
	found := false
	for i, a := range args {
		if a == "LIMIT" {
			if args[i+1] != "0" || args[i+2] != "15" {
				t.Errorf("LIMIT rewritten to %q %q, want 0 15", args[i+1], args[i+2])
			}
			found = true
		}
	}
	if !found {
		t.Fatal("LIMIT clause missing from rewritten command")
	}
}

func TestRewriteSearchInjectsWithScoresWhenNoSortBy(t *testing.T) {
	client := resp.New("FT.SEARCH", []byte("idx"), []byte("hello"))
	shard, err := RewriteSearch(client, SearchFlags{})
	if err != nil {
		t.Fatalf("RewriteSearch() error = %v", err)
	}
	args := argsToStrings(shard)
	has := false
	for _, a := range args {
		if a == "WITHSCORES" {
			has = true
		}
	}
	if !has {
		t.Error("WITHSCORES missing when client specified neither SORTBY nor WITHSCORES")
	}
}

func TestRewriteSearchSkipsWithScoresWhenSortByGiven(t *testing.T) {
	client := resp.New("FT.SEARCH", []byte("idx"), []byte("hello"))
	shard, err := RewriteSearch(client, SearchFlags{SortByField: "price"})
	if err != nil {
		t.Fatalf("RewriteSearch() error = %v", err)
	}
	args := argsToStrings(shard)
	for _, a := range args {
		if a == "WITHSCORES" {
			t.Error("WITHSCORES injected despite an explicit SORTBY")
		}
	}
}

func TestRewriteSearchSkipsWithScoresWhenAlreadyPresent(t *testing.T) {
	client := resp.New("FT.SEARCH", []byte("idx"), []byte("hello"))
	shard, err := RewriteSearch(client, SearchFlags{WithScores: true})
	if err != nil {
		t.Fatalf("RewriteSearch() error = %v", err)
	}
	count := 0
	for _, a := range argsToStrings(shard) {
		if a == "WITHSCORES" {
			count++
		}
	}
	if count != 0 {
		t.Errorf("WITHSCORES injected %d times when flags.WithScores was already true", count)
	}
}

func TestRewriteSearchSortByFieldNamedLimitDoesNotPanic(t *testing.T) {
	client := resp.New("FT.SEARCH", []byte("idx"), []byte("hello"),
		[]byte("SORTBY"), []byte("limit"), []byte("ASC"))
	shard, err := RewriteSearch(client, SearchFlags{SortByField: "limit"})
	if err != nil {
		t.Fatalf("RewriteSearch() error = %v", err)
	}
	args := argsToStrings(shard)
	for i, a := range args {
		if a == "LIMIT" && i > 0 {
			t.Errorf("SORTBY field %q misidentified as a LIMIT clause", args[i])
		}
	}
}

func TestRewriteSearchReturnFieldNamedLimitIsSkipped(t *testing.T) {
	client := resp.New("FT.SEARCH", []byte("idx"), []byte("hello"),
		[]byte("RETURN"), []byte("1"), []byte("limit"))
	shard, err := RewriteSearch(client, SearchFlags{})
	if err != nil {
		t.Fatalf("RewriteSearch() error = %v", err)
	}
	args := argsToStrings(shard)
	if args[len(args)-4] != "RETURN" || args[len(args)-3] != "1" || args[len(args)-2] != "limit" {
		t.Errorf("RETURN field list was rewritten, got %v", args)
	}
}

func TestRewriteSearchMalformedLimitArityReturnsErrWrongArity(t *testing.T) {
	client := resp.New("FT.SEARCH", []byte("idx"), []byte("hello"),
		[]byte("SORTBY"), []byte("limit"), []byte("ASC"), []byte("LIMIT"), []byte("10"))
	if _, err := RewriteSearch(client, SearchFlags{SortByField: "limit"}); err != resp.ErrWrongArity {
		t.Errorf("RewriteSearch() error = %v, want ErrWrongArity", err)
	}
}

func TestRewriteSearchMalformedLimitValueReturnsErrWrongArity(t *testing.T) {
	client := resp.New("FT.SEARCH", []byte("idx"), []byte("hello"),
		[]byte("LIMIT"), []byte("oops"), []byte("5"))
	if _, err := RewriteSearch(client, SearchFlags{}); err != resp.ErrWrongArity {
		t.Errorf("RewriteSearch() error = %v, want ErrWrongArity", err)
	}
}

func TestRewriteAggregatePrefixesVerbOnly(t *testing.T) {
	client := resp.New("FT.AGGREGATE", []byte("idx"), []byte("*"))
	shard := RewriteAggregate(client)
	if shard.Verb() != "_FT.AGGREGATE" {
		t.Errorf("Verb() = %q, want _FT.AGGREGATE", shard.Verb())
	}
	if shard.Root != resp.RootAggregate {
		t.Errorf("Root = %v, want RootAggregate", shard.Root)
	}
	if len(shard.Args()) != len(client.Args()) {
		t.Errorf("len(Args()) = %d, want %d (RewriteAggregate must not add/remove args)", len(shard.Args()), len(client.Args()))
	}
}
