package terminal

import (
	"bytes"
	"fmt"
	"testing"
)

func TestWriterPlain(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, false)
	fmt.Fprintln(w, "SUCCESS: Caught SIGFPE for overflow")
	fmt.Fprint(w, "partial")
	if buf.String() != "SUCCESS: Caught SIGFPE for overflow\n" {
		t.Fatalf("unexpected output %q", buf.String())
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "SUCCESS: Caught SIGFPE for overflow\npartial" {
		t.Fatalf("unexpected output after flush %q", buf.String())
	}
}

func TestWriterColor(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, true)
	fmt.Fprint(w, "FAIL: No SIGFPE ")
	fmt.Fprint(w, "caught (result=inf)\nFPCR after:  0x0\nWARNING: FPCR trap bits did not stick!\n")
	tgt := "\x1b[31mFAIL: No SIGFPE caught (result=inf)\x1b[0m\n" +
		"FPCR after:  0x0\n" +
		"\x1b[33mWARNING: FPCR trap bits did not stick!\x1b[0m\n"
	if buf.String() != tgt {
		t.Fatalf("expected %q, got %q", tgt, buf.String())
	}
}

func TestStdoutModes(t *testing.T) {
	if !Stdout("always").Color() {
		t.Error("always did not enable color")
	}
	if Stdout("never").Color() {
		t.Error("never enabled color")
	}
}
