// Package parser reads the textual `submit(<value>)` form agents send to the conductor.
package parser

import (
	"fmt"
	"strings"

	"sregrade/pkg/errors"

	"gopkg.in/yaml.v3"
)

// SubmitFunc is the only function name accepted.
const SubmitFunc = "submit"

const fence = "```"

// Call is one parsed function call.
type Call struct {
	Name string
	Args []any
}

// Solution returns the first positional argument, or nil for an empty call.
func (c Call) Solution() any {
	if len(c.Args) == 0 {
		return nil
	}
	return c.Args[0]
}

// Wrap renders a raw solution as the fenced submit call the conductor parses.
func Wrap(solution string) string {
	return fmt.Sprintf("%s\nsubmit(%s)\n%s", fence, solution, fence)
}

// Parse extracts the call from text, with or without a surrounding code fence.
// Arguments are decoded as a YAML flow sequence, so "Yes", 'Yes', Yes, 3 and ["a", "b"] all work.
func Parse(text string) (Call, error) {
	body := stripFence(text)
	open := strings.IndexByte(body, '(')
	if open < 0 || !strings.HasSuffix(body, ")") {
		return Call{}, errors.ParseError("No function call found in submission")
	}

	name := strings.TrimSpace(body[:open])
	if !isIdentifier(name) {
		return Call{}, errors.ParseError("Invalid function name %q", name)
	}
	if name != SubmitFunc {
		return Call{}, errors.ParseError("Invalid function name %q, expected %q", name, SubmitFunc)
	}

	raw := strings.TrimSpace(body[open+1 : len(body)-1])
	var args []any
	if raw != "" {
		if err := yaml.Unmarshal([]byte("["+raw+"]"), &args); err != nil {
			return Call{}, errors.ParseError("Invalid submit arguments: %v", err)
		}
	}
	return Call{Name: name, Args: args}, nil
}

func stripFence(text string) string {
	body := strings.TrimSpace(text)
	if !strings.HasPrefix(body, fence) {
		return body
	}
	body = strings.TrimPrefix(body, fence)
	// drop an info string such as ```python
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	}
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, fence)
	return strings.TrimSpace(body)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		case i > 0 && r == '.':
		default:
			return false
		}
	}
	return true
}
