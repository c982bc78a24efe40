package bufshell

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"circbuff/pkg/circbuff"
	"circbuff/pkg/repl"
	"circbuff/pkg/util"

	"github.com/gammazero/deque"
	"github.com/google/netstack/tcpip/header"
	"go.uber.org/zap"
)

var logger = zap.NewNop()

func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

// Shell exposes one buffer through REPL commands.
type Shell struct {
	cb        *circbuff.CircularByteBuffer
	history   *deque.Deque[string]
	histLimit int
}

func NewShell(cb *circbuff.CircularByteBuffer, histLimit int) *Shell {
	return &Shell{
		cb:        cb,
		history:   deque.New[string](),
		histLimit: histLimit,
	}
}

func (s *Shell) Buffer() *circbuff.CircularByteBuffer {
	return s.cb
}

func (s *Shell) Repl() *repl.REPL {
	r := repl.NewRepl()
	s.addCommand(r, "add", addHandler(s.cb), "Adds bytes given as decimal or 0x values. usage: add <b> [b...]")
	s.addCommand(r, "addstr", addStrHandler(s.cb), "Adds the text after the command. usage: addstr <text>")
	s.addCommand(r, "read", readHandler(s.cb), "Reads one byte, or up to n bytes. usage: read [n]")
	s.addCommand(r, "peek", peekHandler(s.cb), "Shows up to n buffered bytes without consuming them. usage: peek [n]")
	s.addCommand(r, "discard", discardHandler(s.cb), "Drops up to n buffered bytes. usage: discard <n>")
	s.addCommand(r, "stat", statHandler(s.cb), "Prints capacity, space and cursor positions. usage: stat")
	s.addCommand(r, "dump", dumpHandler(s.cb), "Hex-dumps the buffered bytes. usage: dump")
	s.addCommand(r, "sum", sumHandler(s.cb), "Prints the internet checksum of the buffered bytes. usage: sum")
	s.addCommand(r, "reset", resetHandler(s.cb), "Drops everything. usage: reset")
	r.AddCommand("hist", histHandler(s), "Prints recent commands. usage: hist")
	return r
}

// addCommand registers handler and records each invocation in the history.
func (s *Shell) addCommand(r *repl.REPL, trigger string, handler func(string, *repl.REPLConfig) error, help string) {
	r.AddCommand(trigger, func(input string, config *repl.REPLConfig) error {
		s.record(input)
		err := handler(input, config)
		logger.Debug("command", zap.String("input", input), zap.Stringer("buffer", s.cb), zap.Error(err))
		return err
	}, help)
}

func (s *Shell) record(input string) {
	if s.histLimit <= 0 {
		return
	}
	s.history.PushBack(input)
	for s.history.Len() > s.histLimit {
		s.history.PopFront()
	}
}

// History returns the recorded commands, oldest first.
func (s *Shell) History() []string {
	res := make([]string, s.history.Len())
	for i := range res {
		res[i] = s.history.At(i)
	}
	return res
}

func addHandler(cb *circbuff.CircularByteBuffer) func(string, *repl.REPLConfig) error {
	return func(input string, config *repl.REPLConfig) error {
		args := strings.Fields(input)
		if len(args) < 2 {
			return fmt.Errorf("usage: add <b> [b...]")
		}
		if len(args) == 2 {
			b, err := util.ParseByte(args[1])
			if err != nil {
				return err
			}
			return cb.Add(b)
		}

		data := make([]byte, 0, len(args)-1)
		for _, arg := range args[1:] {
			b, err := util.ParseByte(arg)
			if err != nil {
				return err
			}
			data = append(data, b)
		}
		return cb.AddBytes(data, 0, len(data))
	}
}

func addStrHandler(cb *circbuff.CircularByteBuffer) func(string, *repl.REPLConfig) error {
	return func(input string, config *repl.REPLConfig) error {
		text, ok := strings.CutPrefix(input, "addstr ")
		if !ok || text == "" {
			return fmt.Errorf("usage: addstr <text>")
		}
		if err := cb.AddBytes([]byte(text), 0, len(text)); err != nil {
			return err
		}
		_, err := io.WriteString(config.Writer, fmt.Sprintf("Added %d bytes\n", len(text)))
		return err
	}
}

func readHandler(cb *circbuff.CircularByteBuffer) func(string, *repl.REPLConfig) error {
	return func(input string, config *repl.REPLConfig) error {
		args := strings.Fields(input)
		switch len(args) {
		case 1:
			b, err := cb.ReadByte()
			if err != nil {
				return err
			}
			_, err = io.WriteString(config.Writer, fmt.Sprintf("%d\n", b))
			return err
		case 2:
			n, err := util.ParseCount(args[1])
			if err != nil {
				return err
			}
			buf := make([]byte, min(n, cb.CurrentNumberOfBytes()))
			n, err = cb.ReadBytes(buf, 0, len(buf))
			if err != nil {
				return err
			}
			_, err = io.WriteString(config.Writer, fmt.Sprintf("Read %d bytes: %q\n", n, buf[:n]))
			return err
		default:
			return fmt.Errorf("usage: read [n]")
		}
	}
}

func peekHandler(cb *circbuff.CircularByteBuffer) func(string, *repl.REPLConfig) error {
	return func(input string, config *repl.REPLConfig) error {
		args := strings.Fields(input)
		n := cb.CurrentNumberOfBytes()
		switch len(args) {
		case 1:
		case 2:
			var err error
			if n, err = util.ParseCount(args[1]); err != nil {
				return err
			}
		default:
			return fmt.Errorf("usage: peek [n]")
		}
		buf := make([]byte, min(n, cb.CurrentNumberOfBytes()))
		n = cb.Peek(buf)
		_, err := io.WriteString(config.Writer, fmt.Sprintf("%q\n", buf[:n]))
		return err
	}
}

func discardHandler(cb *circbuff.CircularByteBuffer) func(string, *repl.REPLConfig) error {
	return func(input string, config *repl.REPLConfig) error {
		args := strings.Fields(input)
		if len(args) != 2 {
			return fmt.Errorf("usage: discard <n>")
		}
		n, err := util.ParseCount(args[1])
		if err != nil {
			return err
		}
		_, err = io.WriteString(config.Writer, fmt.Sprintf("Discarded %d bytes\n", cb.Discard(n)))
		return err
	}
}

func statHandler(cb *circbuff.CircularByteBuffer) func(string, *repl.REPLConfig) error {
	return func(input string, config *repl.REPLConfig) error {
		if len(strings.Fields(input)) != 1 {
			return fmt.Errorf("usage: stat")
		}
		_, err := io.WriteString(config.Writer, "Cap\tBytes\tSpace\tRead\tWrite\n")
		if err != nil {
			return fmt.Errorf("statHandler cannot write the header to stdout")
		}
		_, err = io.WriteString(config.Writer, GetStatString(cb))
		return err
	}
}

func dumpHandler(cb *circbuff.CircularByteBuffer) func(string, *repl.REPLConfig) error {
	return func(input string, config *repl.REPLConfig) error {
		if len(strings.Fields(input)) != 1 {
			return fmt.Errorf("usage: dump")
		}
		_, err := io.WriteString(config.Writer, hex.Dump(cb.Bytes()))
		return err
	}
}

func sumHandler(cb *circbuff.CircularByteBuffer) func(string, *repl.REPLConfig) error {
	return func(input string, config *repl.REPLConfig) error {
		if len(strings.Fields(input)) != 1 {
			return fmt.Errorf("usage: sum")
		}
		_, err := io.WriteString(config.Writer, fmt.Sprintf("0x%04x\n", Checksum(cb.Bytes())))
		return err
	}
}

func resetHandler(cb *circbuff.CircularByteBuffer) func(string, *repl.REPLConfig) error {
	return func(input string, config *repl.REPLConfig) error {
		if len(strings.Fields(input)) != 1 {
			return fmt.Errorf("usage: reset")
		}
		cb.Reset()
		return nil
	}
}

func histHandler(s *Shell) func(string, *repl.REPLConfig) error {
	return func(input string, config *repl.REPLConfig) error {
		for i, line := range s.History() {
			if _, err := io.WriteString(config.Writer, fmt.Sprintf("%d\t%s\n", i, line)); err != nil {
				return fmt.Errorf("histHandler cannot write history to stdout")
			}
		}
		return nil
	}
}

// Checksum returns the RFC 1071 internet checksum of data, computed with
// netstack and inverted the same way a packet header stores it.
func Checksum(data []byte) uint16 {
	return header.Checksum(data, 0) ^ 0xffff
}
