package adapter

import (
	"fmt"
	"os"
	"strings"
)

// DefaultOperators is the fallback operator list enabled when the
// configuration does not disable defaults and does not mention them.
var DefaultOperators = []string{"AOP", "ROP", "AFC", "AOC"}

// OperatorConfig is one operator activation with its configuration.
// Keys appearing before a "properties:" marker inside the block are
// settings; keys after it are properties. Settings is nil when the
// block has no marker.
type OperatorConfig struct {
	Name       string
	Enabled    bool
	Settings   map[string]string
	Properties map[string]string
}

// MutatorConfiguration is the parsed operator configuration file: the
// global settings block plus the list of operator activations the
// generator consumes.
type MutatorConfiguration struct {
	Global    map[string]string
	operators []*OperatorConfig
}

// Operators returns all configured operators in file order, defaults
// appended last.
func (mc *MutatorConfiguration) Operators() []*OperatorConfig {
	return mc.operators
}

// EnabledOperators returns the names of all enabled operators in order.
func (mc *MutatorConfiguration) EnabledOperators() []string {
	var names []string
	for _, op := range mc.operators {
		if op.Enabled {
			names = append(names, op.Name)
		}
	}
	return names
}

// ReadConfiguration parses the operator configuration file at path.
func ReadConfiguration(path string) (*MutatorConfiguration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfiguration(string(data))
}

// confLexer yields whitespace-separated words with braces as their own
// tokens.
type confLexer struct {
	src  string
	pos  int
	line int
}

func (l *confLexer) next() (tok string, line int, ok bool) {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '\n' {
			l.line++
			l.pos++
			continue
		}
		if c == ' ' || c == '\t' || c == '\r' {
			l.pos++
			continue
		}
		break
	}
	if l.pos == len(l.src) {
		return "", l.line, false
	}
	if c := l.src[l.pos]; c == '{' || c == '}' {
		l.pos++
		return string(c), l.line, true
	}
	start := l.pos
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '{' || c == '}' {
			break
		}
		l.pos++
	}
	return l.src[start:l.pos], l.line, true
}

func parseKeyValue(tok string, line int, into map[string]string) error {
	eq := strings.IndexByte(tok, '=')
	if eq <= 0 {
		return fmt.Errorf("line %d: expected key=value, got %q", line+1, tok)
	}
	into[tok[:eq]] = tok[eq+1:]
	return nil
}

// ParseConfiguration parses the brace-delimited operator configuration
// grammar: a mandatory leading "global { ... }" block, then zero or more
// "Name[:off] { ... }" operator blocks. Operators from the default list
// that the file does not mention are enabled unless the global
// defaultEnabled setting turns that off.
func ParseConfiguration(src string) (*MutatorConfiguration, error) {
	l := &confLexer{src: src}

	tok, line, ok := l.next()
	if !ok || tok != "global" {
		return nil, fmt.Errorf("line %d: global settings section not declared", line+1)
	}
	if tok, line, ok = l.next(); !ok || tok != "{" {
		return nil, fmt.Errorf("line %d: expected '{'", line+1)
	}

	mc := &MutatorConfiguration{Global: make(map[string]string)}
	for {
		tok, line, ok = l.next()
		if !ok {
			return nil, fmt.Errorf("unexpected end of file, expected '}'")
		}
		if tok == "}" {
			break
		}
		if err := parseKeyValue(tok, line, mc.Global); err != nil {
			return nil, err
		}
	}

	defaultEnabled := true
	switch strings.ToLower(mc.Global["defaultEnabled"]) {
	case "0", "false", "f":
		defaultEnabled = false
	}

	configured := make(map[string]bool)
	for {
		name, line, ok := l.next()
		if !ok {
			break
		}
		if name == "{" || name == "}" {
			return nil, fmt.Errorf("line %d: expected mutation operator name", line+1)
		}
		enabled := true
		if base, found := strings.CutSuffix(name, ":off"); found {
			name = base
			enabled = false
		} else if pos := strings.LastIndexByte(name, ':'); pos != -1 {
			name = name[:pos]
		}

		if tok, line, ok = l.next(); !ok || tok != "{" {
			return nil, fmt.Errorf("line %d: expected '{'", line+1)
		}

		var settings map[string]string
		props := make(map[string]string)
		for {
			tok, line, ok = l.next()
			if !ok {
				return nil, fmt.Errorf("unexpected end of file, expected '}'")
			}
			if tok == "}" {
				break
			}
			if tok == "properties:" {
				settings = props
				props = make(map[string]string)
				continue
			}
			if err := parseKeyValue(tok, line, props); err != nil {
				return nil, err
			}
		}

		configured[name] = true
		mc.operators = append(mc.operators, &OperatorConfig{
			Name:       name,
			Enabled:    enabled,
			Settings:   settings,
			Properties: props,
		})
	}

	if defaultEnabled {
		for _, name := range DefaultOperators {
			if !configured[name] {
				mc.operators = append(mc.operators, &OperatorConfig{
					Name:       name,
					Enabled:    true,
					Properties: make(map[string]string),
				})
			}
		}
	}

	if len(mc.EnabledOperators()) == 0 {
		return nil, fmt.Errorf("no mutation operators enabled")
	}
	return mc, nil
}
