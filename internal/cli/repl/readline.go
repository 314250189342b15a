package repl

import (
	"sregrade/internal/cli/command"

	"github.com/chzyer/readline"
)

const prompt = "\033[1;32msregrade>\033[0m "

// NewReadline opens an interactive terminal reader with history and completion.
func NewReadline(historyFile string, commands map[string]command.Command) (*readline.Instance, error) {
	return readline.NewEx(&readline.Config{
		Prompt:            prompt,
		HistoryFile:       historyFile,
		AutoComplete:      Completer(commands),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
}

// Completer completes conductor commands, REPL builtins and common kubectl verbs.
func Completer(commands map[string]command.Command) *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(commands)+6)
	for _, name := range command.Names(commands) {
		items = append(items, readline.PcItem(name))
	}
	resources := func() []readline.PrefixCompleterInterface {
		return []readline.PrefixCompleterInterface{
			readline.PcItem("pods"),
			readline.PcItem("deployments"),
			readline.PcItem("services"),
			readline.PcItem("events"),
			readline.PcItem("configmaps"),
		}
	}
	items = append(items,
		readline.PcItem("help"),
		readline.PcItem("exit"),
		readline.PcItem("set", readline.PcItem("base"), readline.PcItem("timeout")),
		readline.PcItem("show", readline.PcItem("config"), readline.PcItem("transcript")),
		readline.PcItem("kubectl",
			readline.PcItem("get", resources()...),
			readline.PcItem("describe", resources()...),
			readline.PcItem("logs"),
			readline.PcItem("scale"),
			readline.PcItem("rollout"),
		),
	)
	return readline.NewPrefixCompleter(items...)
}
