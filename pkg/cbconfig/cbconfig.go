package cbconfig

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"circbuff/pkg/circbuff"

	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	DefaultChunk   = 512
	DefaultPrompt  = "> "
	DefaultHistory = 32
)

/*
 * A config file holds one directive per line, '#' starts a comment:
 *
 *   capacity 4096
 *   chunk 512
 *   log-level debug
 *   prompt cbuff>
 *   history 32   # trailing comments are allowed
 *
 * Files ending in .yaml or .yml are decoded as YAML with the same keys.
 */
type Config struct {
	Capacity int    `yaml:"capacity"`
	Chunk    int    `yaml:"chunk"`
	LogLevel string `yaml:"log-level"`
	Prompt   string `yaml:"prompt"`
	History  int    `yaml:"history"`
}

func Default() *Config {
	return &Config{
		Capacity: circbuff.DefaultCapacity,
		Chunk:    DefaultChunk,
		LogLevel: "info",
		Prompt:   DefaultPrompt,
		History:  DefaultHistory,
	}
}

// Level maps LogLevel onto a zap level.
func (c *Config) Level() (zapcore.Level, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return lvl, errors.Errorf("unknown log level %q", c.LogLevel)
	}
	return lvl, nil
}

func (c *Config) Validate() error {
	if c.Capacity <= 0 {
		return errors.Errorf("capacity must be positive, got %d", c.Capacity)
	}
	if c.Chunk <= 0 {
		return errors.Errorf("chunk must be positive, got %d", c.Chunk)
	}
	if c.History < 0 {
		return errors.Errorf("history must not be negative, got %d", c.History)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// ******************** END PUBLIC INTERFACE *********************************************

type ParseFunc func(int, []string, *Config) error

var parseCommands = map[string]ParseFunc{
	"capacity":  parseIntDirective(func(c *Config) *int { return &c.Capacity }),
	"chunk":     parseIntDirective(func(c *Config) *int { return &c.Chunk }),
	"history":   parseIntDirective(func(c *Config) *int { return &c.History }),
	"log-level": parseLogLevel,
	"prompt":    parsePrompt,
}

func parseIntDirective(field func(*Config) *int) ParseFunc {
	return func(ln int, tokens []string, config *Config) error {
		if len(tokens) != 2 {
			return newErrString(ln, "directive must have format:  %s <n>", tokens[0])
		}
		n, err := strconv.Atoi(tokens[1])
		if err != nil {
			return newErr(ln, err)
		}
		*field(config) = n
		return nil
	}
}

func parseLogLevel(ln int, tokens []string, config *Config) error {
	if len(tokens) != 2 {
		return newErrString(ln, "log-level directive must have format:  log-level <level>")
	}
	config.LogLevel = tokens[1]
	return nil
}

func parsePrompt(ln int, tokens []string, config *Config) error {
	if len(tokens) < 2 {
		return newErrString(ln, "prompt directive must have format:  prompt <text>")
	}
	config.Prompt = normalizePrompt(strings.Join(tokens[1:], " "))
	return nil
}

// normalizePrompt trims p and leaves a single space before user input.
func normalizePrompt(p string) string {
	return strings.TrimSpace(p) + " "
}

func newErrString(line int, msg string, args ...any) error {
	_msg := fmt.Sprintf(msg, args...)
	return errors.Errorf("Parse error on line %d:  %s", line, _msg)
}

func newErr(line int, err error) error {
	return errors.Wrapf(err, "Parse error on line %d", line)
}

// Parse reads directives from r on top of the defaults.
func Parse(r io.Reader) (*Config, error) {
	config := Default()

	scanner := bufio.NewScanner(r)
	ln := 0
	for scanner.Scan() {
		ln++

		line, _, _ := strings.Cut(scanner.Text(), "#")
		tokens := strings.Fields(line)
		if len(tokens) == 0 {
			continue
		}

		head := tokens[0]

		pf, found := parseCommands[head]
		if !found {
			return nil, newErrString(ln, "Unrecognized token %s", head)
		}
		if err := pf(ln, tokens, config); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read config")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// ParseYAML decodes a YAML document on top of the defaults.
func ParseYAML(r io.Reader) (*Config, error) {
	config := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(config); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "decode yaml config")
	}
	if strings.TrimSpace(config.Prompt) == "" {
		config.Prompt = DefaultPrompt
	} else {
		config.Prompt = normalizePrompt(config.Prompt)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Parse a configuration file
func ParseConfig(configFile string) (*Config, error) {
	fd, err := os.Open(configFile)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to open file")
	}
	defer fd.Close()

	switch strings.ToLower(filepath.Ext(configFile)) {
	case ".yaml", ".yml":
		return ParseYAML(fd)
	default:
		return Parse(fd)
	}
}
