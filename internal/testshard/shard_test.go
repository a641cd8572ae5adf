package testshard

import (
	"strconv"
	"testing"

	"github.com/dreamware/fanoutsearch/internal/resp"
)

func TestHandleSearchOrdersByScore(t *testing.T) {
	s := New()
	s.Index("doc1", map[string]interface{}{"title": "alpha"}, 0.5)
	s.Index("doc2", map[string]interface{}{"title": "beta"}, 0.9)

	cmd := resp.New("_FT.SEARCH", []byte("idx"), []byte("*"), []byte("WITHSCORES"))
	reply, err := s.Handle(cmd)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	arr, ok := resp.AsArray(reply)
	if !ok {
		t.Fatalf("reply is not an array: %T", reply)
	}
	total, _ := resp.AsInt(arr[0])
	if total != 2 {
		t.Fatalf("total = %d, want 2", total)
	}
	id, _ := resp.AsString(arr[1])
	if id != "doc2" {
		t.Errorf("first result = %q, want doc2 (higher score)", id)
	}
}

func TestHandleCursorReadThenDel(t *testing.T) {
	s := New()
	id := s.OpenCursor([]*Doc{{ID: "doc1", Fields: map[string]interface{}{"a": "1"}}})

	readCmd := resp.New("_FT.CURSOR", []byte("READ"), []byte("idx"), []byte(strconv.FormatInt(id, 10)))
	reply, err := s.Handle(readCmd)
	if err != nil {
		t.Fatalf("READ: %v", err)
	}
	arr, _ := resp.AsArray(reply)
	if len(arr) != 2 {
		t.Fatalf("READ reply shape = %v, want [results, cursor_id]", arr)
	}
	cursorID, _ := resp.AsInt(arr[1])
	if cursorID != 0 {
		t.Errorf("cursor id after full read = %d, want 0 (exhausted)", cursorID)
	}

	delCmd := resp.New("_FT.CURSOR", []byte("DEL"), []byte("idx"), []byte(strconv.FormatInt(id, 10)))
	if _, err := s.Handle(delCmd); err != nil {
		t.Fatalf("DEL: %v", err)
	}
}

func TestHandleUnknownVerb(t *testing.T) {
	s := New()
	if _, err := s.Handle(resp.New("FT.BOGUS")); err != resp.ErrParseError {
		t.Errorf("err = %v, want ErrParseError", err)
	}
}
