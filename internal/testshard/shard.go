package testshard

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/dreamware/fanoutsearch/internal/resp"
)

// Doc is one indexed document: an id plus its field values.
type Doc struct {
	ID     string
	Fields map[string]interface{}
	Score  float64
}

// Shard is an in-memory fake search shard. Index adds documents directly
// (there is no query-language parser here — a real single-shard engine
// is out of scope for this test double); Handle answers the
// coordinator's shard-private commands (_FT.SEARCH, _FT.AGGREGATE,
// _FT.CURSOR READ/DEL) against that in-memory set.
type Shard struct {
	mu   sync.RWMutex
	docs map[string]*Doc

	cursorMu sync.Mutex
	cursors  map[int64][]*Doc
	nextID   int64
}

// New creates an empty fake shard.
func New() *Shard {
	return &Shard{
		docs:    make(map[string]*Doc),
		cursors: make(map[int64][]*Doc),
		nextID:  1,
	}
}

// Index adds or replaces a document.
func (s *Shard) Index(id string, fields map[string]interface{}, score float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[id] = &Doc{ID: id, Fields: fields, Score: score}
}

// Handle answers one command, matching the shard-private verbs the
// coordinator's rewrite step produces. Unrecognized verbs return
// ErrParseError, a fail-closed posture for unknown input rather than
// silently no-opping.
func (s *Shard) Handle(cmd *resp.Command) (resp.Reply, error) {
	verb := strings.ToUpper(cmd.Verb())
	switch verb {
	case "_FT.SEARCH", "FT.SEARCH":
		return s.handleSearch(cmd)
	case "_FT.AGGREGATE", "FT.AGGREGATE":
		return s.handleAggregate(cmd)
	case "_FT.CURSOR", "FT.CURSOR":
		return s.handleCursor(cmd)
	default:
		return nil, resp.ErrParseError
	}
}

// handleSearch returns every indexed doc (in descending score order),
// ignoring the actual query text — matching is out of scope here, only
// the reply shape and top-K merge inputs matter to coordinator tests.
func (s *Shard) handleSearch(cmd *resp.Command) (resp.Reply, error) {
	s.mu.RLock()
	docs := make([]*Doc, 0, len(s.docs))
	for _, d := range s.docs {
		docs = append(docs, d)
	}
	s.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Score != docs[j].Score {
			return docs[i].Score > docs[j].Score
		}
		return docs[i].ID > docs[j].ID
	})

	withScores := hasArg(cmd, "WITHSCORES")

	out := []interface{}{int64(len(docs))}
	for _, d := range docs {
		out = append(out, d.ID)
		if withScores {
			out = append(out, formatFloat(d.Score))
		}
		out = append(out, fieldsToArray(d.Fields))
	}
	return out, nil
}

// handleAggregate buckets every doc under a single fixed group ("all")
// and returns a one-shot cursor id of 0 (no pagination) — enough to
// exercise the aggregate reducer's plumbing without a real pipeline.
func (s *Shard) handleAggregate(cmd *resp.Command) (resp.Reply, error) {
	s.mu.RLock()
	n := len(s.docs)
	s.mu.RUnlock()

	row := []interface{}{"group", "all", "count", strconv.Itoa(n)}
	results := []interface{}{int64(1), row}
	return []interface{}{results, int64(0)}, nil
}

// handleCursor implements READ/DEL against a tiny in-memory cursor table.
// READ always exhausts its remaining docs in one round (cursor id 0 on
// return) since the fake shard never needs more than one page to prove
// out iterator teardown.
func (s *Shard) handleCursor(cmd *resp.Command) (resp.Reply, error) {
	args := cmd.Args()
	if len(args) < 4 {
		return nil, resp.ErrWrongArity
	}
	sub := strings.ToUpper(string(args[1]))
	cursorID, err := strconv.ParseInt(string(args[3]), 10, 64)
	if err != nil {
		return nil, resp.ErrParseError
	}

	s.cursorMu.Lock()
	defer s.cursorMu.Unlock()

	switch sub {
	case "DEL":
		delete(s.cursors, cursorID)
		return "OK", nil
	case "READ":
		docs, ok := s.cursors[cursorID]
		if !ok {
			return []interface{}{int64(0), int64(0)}, nil
		}
		delete(s.cursors, cursorID)
		rows := make([]interface{}, 0, len(docs))
		for _, d := range docs {
			rows = append(rows, fieldsToArray(d.Fields))
		}
		return []interface{}{append([]interface{}{int64(len(docs))}, rows...), int64(0)}, nil
	default:
		return nil, resp.ErrParseError
	}
}

// OpenCursor seeds a cursor id with a fixed doc set, for tests that want
// to drive FT.AGGREGATE WITHCURSOR pagination directly without going
// through handleAggregate's single-round behavior.
func (s *Shard) OpenCursor(docs []*Doc) int64 {
	s.cursorMu.Lock()
	defer s.cursorMu.Unlock()
	id := s.nextID
	s.nextID++
	s.cursors[id] = docs
	return id
}

func hasArg(cmd *resp.Command, name string) bool {
	for _, a := range cmd.Args() {
		if strings.EqualFold(string(a), name) {
			return true
		}
	}
	return false
}

func fieldsToArray(fields map[string]interface{}) []interface{} {
	out := make([]interface{}, 0, len(fields)*2)
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k, fields[k])
	}
	return out
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
