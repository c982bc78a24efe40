package bufshell

import (
	"strings"
	"testing"

	"circbuff/pkg/circbuff"
)

func runScript(t *testing.T, s *Shell, lines ...string) string {
	t.Helper()
	r := s.Repl()
	r.Prompt = ""
	var out strings.Builder
	if err := r.Run(strings.NewReader(strings.Join(lines, "\n")+"\n"), &out); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	return out.String()
}

func newShell(t *testing.T, capacity, hist int) *Shell {
	t.Helper()
	cb, err := circbuff.New(capacity)
	if err != nil {
		t.Fatalf("New(%d) failed: %v", capacity, err)
	}
	return NewShell(cb, hist)
}

func TestShell_AddRead(t *testing.T) {
	s := newShell(t, 4, 8)
	out := runScript(t, s,
		"add 10",
		"add 20 0x1e",
		"read",
		"stat",
		"add 1 2 3",
		"addstr z",
		"read 10",
		"read",
	)

	want := "10\n" +
		"Cap\tBytes\tSpace\tRead\tWrite\n" +
		"4\t2\t2\t1\t3\n" +
		"Error: cannot add 3 bytes, 2 free: buffer capacity exceeded\n" +
		"Added 1 bytes\n" +
		"Read 3 bytes: \"\\x14\\x1ez\"\n" +
		"Error: no bytes available: buffer underflow\n"
	if out != want {
		t.Fatalf("unexpected output:\n%s\nwant:\n%s", out, want)
	}
}

func TestShell_PeekDiscardDump(t *testing.T) {
	s := newShell(t, 8, 8)
	out := runScript(t, s,
		"addstr hello",
		"peek 2",
		"discard 1",
		"peek",
		"reset",
		"dump",
		"peek",
	)

	want := "Added 5 bytes\n" +
		"\"he\"\n" +
		"Discarded 1 bytes\n" +
		"\"ello\"\n" +
		"\"\"\n"
	if out != want {
		t.Fatalf("unexpected output:\n%s\nwant:\n%s", out, want)
	}
	if s.Buffer().HasBytes() {
		t.Fatalf("expect empty buffer after reset")
	}
}

func TestShell_Usage(t *testing.T) {
	s := newShell(t, 8, 8)
	out := runScript(t, s, "add", "add 300", "read -1", "discard", "stat x")
	for _, want := range []string{
		"Error: usage: add <b> [b...]\n",
		"Error: input 300 is out of range\n",
		"Error: input -1 must not be negative\n",
		"Error: usage: discard <n>\n",
		"Error: usage: stat\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expect output to contain %q but got:\n%s", want, out)
		}
	}
}

func TestShell_History(t *testing.T) {
	s := newShell(t, 8, 2)
	out := runScript(t, s, "add 1", "add 2", "read", "hist")
	want := "1\n0\tadd 2\n1\tread\n"
	if out != want {
		t.Fatalf("unexpected output %q", out)
	}

	s = newShell(t, 8, 0)
	runScript(t, s, "add 1")
	if len(s.History()) != 0 {
		t.Fatalf("history must be disabled, got %q", s.History())
	}
}

func TestShell_Sum(t *testing.T) {
	s := newShell(t, 4, 0)
	out := runScript(t, s, "sum", "add 0 1 0 2", "sum")
	if out != "0xffff\n0xfffc\n" {
		t.Fatalf("unexpected checksums %q", out)
	}
}

func TestChecksum_Wraparound(t *testing.T) {
	cb, _ := circbuff.New(4)
	cb.AddBytes([]byte{9, 9, 9}, 0, 3)
	cb.Discard(3)
	cb.AddBytes([]byte{0, 1, 0, 2}, 0, 4)
	if got := Checksum(cb.Bytes()); got != 0xfffc {
		t.Fatalf("expect 0xfffc but got 0x%04x", got)
	}
}

func TestShell_HugeCounts(t *testing.T) {
	s := newShell(t, 4, 0)
	out := runScript(t, s,
		"addstr ab",
		"peek 9223372036854775807",
		"peek 10000000000",
		"read 9223372036854775807",
		"read 10000000000",
	)

	want := "Added 2 bytes\n" +
		"\"ab\"\n" +
		"\"ab\"\n" +
		"Read 2 bytes: \"ab\"\n" +
		"Read 0 bytes: \"\"\n"
	if out != want {
		t.Fatalf("unexpected output:\n%s\nwant:\n%s", out, want)
	}
}
