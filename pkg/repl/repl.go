package repl

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/chzyer/readline"
)

type REPL struct {
	Commands map[string]func(string, *REPLConfig) error
	Help     map[string]string
	Prompt   string
}

type REPLConfig struct {
	Writer io.Writer
}

func NewRepl() *REPL {
	r := &REPL{make(map[string]func(string, *REPLConfig) error), make(map[string]string), ">"}
	return r
}

// Add a command, along with its help string, to the set of commands
func (r *REPL) AddCommand(trigger string, handler func(string, *REPLConfig) error, help string) {
	if trigger == "" || trigger[0] == '.' {
		return
	}
	r.Help[trigger] = help
	r.Commands[trigger] = handler
}

// Return all REPL usage information as a string
func (r *REPL) HelpString() string {
	triggers := make([]string, 0, len(r.Help))
	for k := range r.Help {
		triggers = append(triggers, k)
	}
	sort.Strings(triggers)

	var sb strings.Builder
	sb.WriteString("Commands\n")
	for _, k := range triggers {
		sb.WriteString(fmt.Sprintf("\t%s: %s\n", k, r.Help[k]))
	}
	return sb.String()
}

// Execute runs a single input line. It reports false when the line asks the
// REPL to stop.
func (r *REPL) Execute(input string, config *REPLConfig) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return true
	}
	command := strings.Fields(input)[0]
	switch command {
	case "exit", "quit":
		return false
	case "help":
		io.WriteString(config.Writer, r.HelpString())
		return true
	}

	handler, ok := r.Commands[command]
	if !ok {
		io.WriteString(config.Writer, fmt.Sprintf("Invalid command: %s\n", command))
		io.WriteString(config.Writer, r.HelpString())
		return true
	}
	if err := handler(input, config); err != nil {
		io.WriteString(config.Writer, fmt.Sprintf("Error: %v\n", err))
	}
	return true
}

// Run reads commands line by line from reader until EOF or "exit".
func (r *REPL) Run(reader io.Reader, writer io.Writer) error {
	scanner := bufio.NewScanner(reader)
	replConfig := &REPLConfig{Writer: writer}

	// begin the repl
	io.WriteString(writer, r.Prompt) // the prompt
	for scanner.Scan() {
		if !r.Execute(scanner.Text(), replConfig) {
			return nil
		}
		io.WriteString(writer, r.Prompt)
	}
	return scanner.Err()
}

// RunInteractive drives the REPL from the terminal with line editing and
// history. Ctrl-C clears the line, Ctrl-D exits.
func (r *REPL) RunInteractive() error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          r.Prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	replConfig := &REPLConfig{Writer: rl.Stdout()}
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if !r.Execute(line, replConfig) {
			return nil
		}
	}
}
