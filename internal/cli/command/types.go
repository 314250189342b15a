package command

import (
	"strings"
)

// Field defines a CLI input field.
type Field struct {
	Name     string
	Prompt   string
	Required bool
}

// Command defines a CLI command bound to one conductor endpoint.
type Command struct {
	Name    string
	Method  string
	Path    string
	Summary string
	Example string
	Fields  []Field
}

// RequestSpec is the built HTTP request.
type RequestSpec struct {
	Method  string
	Path    string
	Headers map[string]string
	Body    []byte
}

// Line is one parsed input line.
type Line struct {
	Command Command
	// Arg is the raw text after the command name, quotes intact.
	Arg string
}

// splitName separates the leading word of line from the rest. A call form such as
// submit("Yes") yields the name and the text between the outer parentheses.
func splitName(line string) (string, string) {
	line = strings.TrimSpace(line)
	if i := strings.IndexAny(line, "( \t"); i >= 0 {
		name, rest := line[:i], line[i:]
		if rest[0] == '(' {
			rest = strings.TrimPrefix(rest, "(")
			rest = strings.TrimSuffix(strings.TrimSpace(rest), ")")
		}
		return strings.ToLower(name), strings.TrimSpace(rest)
	}
	return strings.ToLower(line), ""
}
