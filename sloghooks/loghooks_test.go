package sloghooks

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func newTextLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

func TestEventsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	h := New(newTextLogger(&buf), Options{})

	h.DecodeRejected("resource_limit_exceeded", "map_pairs", 9)
	h.NonCanonicalInput(9, 1)
	h.EncodeRejected(12, 8)
	h.BlockCorrupt("bafyexample")

	want := []string{
		`level=INFO msg=canoncbor.decode_rejected kind=resource_limit_exceeded limit=map_pairs size=9`,
		`level=DEBUG msg=canoncbor.non_canonical_input size=9 canonical_size=1`,
		`level=WARN msg=canoncbor.encode_rejected size=12 max=8`,
		`level=ERROR msg=canoncbor.block_corrupt cid=bafyexample`,
	}
	got := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("got:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestSamplingAndRedaction(t *testing.T) {
	var buf bytes.Buffer
	h := New(newTextLogger(&buf), Options{DecodeRejectedEvery: 3, Redact: HashRedact})

	for i := 0; i < 9; i++ {
		h.DecodeRejected("malformed", "none", 1)
	}
	if n := strings.Count(buf.String(), "decode_rejected"); n != 3 {
		t.Fatalf("logged %d of 9 with sampling 3", n)
	}

	buf.Reset()
	h.BlockCorrupt("bafyexample")
	if strings.Contains(buf.String(), "bafyexample") || !strings.Contains(buf.String(), "cid="+HashRedact("bafyexample")) {
		t.Fatalf("not redacted: %s", buf.String())
	}
	if len(HashRedact("x")) != 16 {
		t.Fatalf("HashRedact length")
	}
}

func TestNilLoggerIsNoop(t *testing.T) {
	h := New(nil, Options{})
	h.DecodeRejected("malformed", "none", 1)
	h.BlockCorrupt("x")
}
