package command

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"sregrade/internal/conductor/model"
)

// Submit is the name of the grading command.
const Submit = "submit"

// Registry returns all CLI commands keyed by name.
func Registry() map[string]Command {
	commands := []Command{
		{
			Name:    "status",
			Method:  http.MethodGet,
			Path:    "/status",
			Summary: "show the current submission stage",
		},
		{
			Name:    "app",
			Method:  http.MethodGet,
			Path:    "/get_app",
			Summary: "describe the application under test",
		},
		{
			Name:    "problem",
			Method:  http.MethodGet,
			Path:    "/get_problem",
			Summary: "show the active problem id",
		},
		{
			Name:    "health",
			Method:  http.MethodGet,
			Path:    "/healthz",
			Summary: "check that the conductor is up",
		},
		{
			Name:    Submit,
			Method:  http.MethodPost,
			Path:    "/submit",
			Summary: "grade an answer for the current stage",
			Example: `submit("Yes") | submit(["user-service"]) | submit()`,
			Fields: []Field{
				{Name: "solution", Prompt: "solution", Required: false},
			},
		},
	}
	result := make(map[string]Command, len(commands))
	for _, cmd := range commands {
		result[cmd.Name] = cmd
	}
	return result
}

// Names returns the command names in sorted order.
func Names(commands map[string]Command) []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve matches line against commands. Lines that name no command are left for the shell.
func Resolve(commands map[string]Command, line string) (Line, bool) {
	name, arg := splitName(line)
	cmd, ok := commands[name]
	if !ok {
		return Line{}, false
	}
	return Line{Command: cmd, Arg: arg}, true
}

// BuildRequest renders a resolved line as an HTTP request.
func BuildRequest(line Line) (RequestSpec, error) {
	req := RequestSpec{
		Method:  line.Command.Method,
		Path:    line.Command.Path,
		Headers: map[string]string{"Accept": "application/json"},
	}
	if line.Command.Method == http.MethodGet {
		if line.Arg != "" {
			return RequestSpec{}, fmt.Errorf("%s takes no arguments", line.Command.Name)
		}
		return req, nil
	}
	solution := line.Arg
	body, err := json.Marshal(model.SubmitRequest{Solution: &solution})
	if err != nil {
		return RequestSpec{}, fmt.Errorf("marshal request failed: %w", err)
	}
	req.Body = body
	return req, nil
}
