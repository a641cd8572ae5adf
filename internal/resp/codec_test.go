package resp

import (
	"bufio"
	"bytes"
	"testing"
)

func TestEncodeDecodeRoundTripResp2(t *testing.T) {
	cmd := New("FT.SEARCH", []byte("idx"), []byte("hello"))
	var buf bytes.Buffer
	if err := Encode(&buf, cmd); err != nil {
		t.Fatalf("Encode() err = %v", err)
	}

	r := bufio.NewReader(&buf)
	reply, err := Decode(r, 2)
	if err != nil {
		t.Fatalf("Decode() err = %v", err)
	}
	arr, ok := AsArray(reply)
	if !ok {
		t.Fatalf("decoded reply not an array: %T", reply)
	}
	want := []string{"FT.SEARCH", "idx", "hello"}
	if len(arr) != len(want) {
		t.Fatalf("len(arr) = %d, want %d", len(arr), len(want))
	}
	for i, w := range want {
		got, ok := AsString(arr[i])
		if !ok || got != w {
			t.Errorf("arr[%d] = %v, want %q", i, arr[i], w)
		}
	}
}

func TestEncodeReplyResp2Error(t *testing.T) {
	var buf bytes.Buffer
	err := EncodeReply(&buf, nil, ErrClusterDown, 2)
	if err != nil {
		t.Fatalf("EncodeReply() err = %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("EncodeReply wrote nothing for an error reply")
	}
	if buf.Bytes()[0] != '-' {
		t.Errorf("encoded error does not start with RESP error sigil: %q", buf.Bytes()[:1])
	}
}

func TestEncodeReplyResp2Value(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeReply(&buf, "OK", nil, 2); err != nil {
		t.Fatalf("EncodeReply() err = %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("EncodeReply wrote nothing")
	}
}

func TestAsIntAcceptsInt64AndFloat64(t *testing.T) {
	if v, ok := AsInt(int64(42)); !ok || v != 42 {
		t.Errorf("AsInt(int64(42)) = (%d, %v), want (42, true)", v, ok)
	}
	if v, ok := AsInt(float64(42)); !ok || v != 42 {
		t.Errorf("AsInt(float64(42)) = (%d, %v), want (42, true)", v, ok)
	}
	if _, ok := AsInt("42"); ok {
		t.Error("AsInt(string) should not be ok")
	}
}

func TestAsScoreAcceptsAllNumericShapes(t *testing.T) {
	cases := []struct {
		name string
		in   Reply
		want float64
	}{
		{"float64", float64(1.5), 1.5},
		{"int64", int64(3), 3},
		{"string", "2.25", 2.25},
		{"bytes", []byte("4.5"), 4.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := AsScore(tc.in)
			if !ok {
				t.Fatalf("AsScore(%v) not ok", tc.in)
			}
			if got != tc.want {
				t.Errorf("AsScore(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestAsScoreRejectsUnparsableString(t *testing.T) {
	if _, ok := AsScore("not-a-number"); ok {
		t.Error("AsScore(unparsable string) should not be ok")
	}
}

func TestAsStringAcceptsStringAndBytes(t *testing.T) {
	if got, ok := AsString("hello"); !ok || got != "hello" {
		t.Errorf("AsString(string) = (%q, %v)", got, ok)
	}
	if got, ok := AsString([]byte("hello")); !ok || got != "hello" {
		t.Errorf("AsString([]byte) = (%q, %v)", got, ok)
	}
	if _, ok := AsString(42); ok {
		t.Error("AsString(int) should not be ok")
	}
}

func TestIsErrorDetectsGoError(t *testing.T) {
	msg, ok := IsError(ErrOOM)
	if !ok {
		t.Fatal("IsError(ErrOOM) not ok")
	}
	if msg != ErrOOM.Error() {
		t.Errorf("IsError message = %q, want %q", msg, ErrOOM.Error())
	}
}

func TestIsErrorFalseForOrdinaryValue(t *testing.T) {
	if _, ok := IsError("OK"); ok {
		t.Error("IsError(\"OK\") should not be ok")
	}
}

func TestAsMapRejectsNonMap(t *testing.T) {
	if _, ok := AsMap([]interface{}{1, 2}); ok {
		t.Error("AsMap(array) should not be ok")
	}
}
