package repl

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"time"

	"sregrade/internal/cli/command"
	httpclient "sregrade/internal/cli/http"
	"sregrade/internal/cli/state"
	"sregrade/internal/common/cmdexec"
	"sregrade/internal/conductor/model"
	appErr "sregrade/pkg/errors"

	"github.com/chzyer/readline"
)

const welcome = `SREGrade human agent
  Commands run against the cluster; grading goes through submit.
  Type help for the command list, exit to quit.`

var errExit = stderrors.New("exit")

// LineReader yields one input line per call.
type LineReader interface {
	Readline() (string, error)
	Close() error
}

// ShellRunner executes the agent's cluster commands.
type ShellRunner interface {
	Run(ctx context.Context, template string, vars map[string]string) (cmdexec.Output, error)
}

// Options configures a Session.
type Options struct {
	Client         *httpclient.Client
	Commands       map[string]command.Command
	Shell          ShellRunner
	Input          LineReader
	Output         io.Writer
	TranscriptPath string
	PrettyJSON     bool
}

// Session holds REPL state.
type Session struct {
	client         *httpclient.Client
	commands       map[string]command.Command
	shell          ShellRunner
	input          LineReader
	out            io.Writer
	transcriptPath string
	prettyJSON     bool
}

func New(opts Options) *Session {
	return &Session{
		client:         opts.Client,
		commands:       opts.Commands,
		shell:          opts.Shell,
		input:          opts.Input,
		out:            opts.Output,
		transcriptPath: opts.TranscriptPath,
		prettyJSON:     opts.PrettyJSON,
	}
}

// Run reads lines until exit, EOF or an interrupt on an empty line.
func (s *Session) Run(ctx context.Context) error {
	s.printLine("%s", welcome)
	for {
		line, err := s.input.Readline()
		if err != nil {
			if stderrors.Is(err, readline.ErrInterrupt) && strings.TrimSpace(line) != "" {
				continue
			}
			if stderrors.Is(err, readline.ErrInterrupt) || stderrors.Is(err, io.EOF) {
				s.printLine("bye")
				return nil
			}
			return fmt.Errorf("read input failed: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := s.handleLine(ctx, line); err != nil {
			if stderrors.Is(err, errExit) {
				s.printLine("bye")
				return nil
			}
			s.printLine("error: %v", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (s *Session) handleLine(ctx context.Context, line string) error {
	if handled, err := s.handleSystemCommand(line); handled {
		return err
	}
	if resolved, ok := command.Resolve(s.commands, line); ok {
		return s.handleCommand(ctx, resolved, line)
	}
	return s.runShell(ctx, line)
}

func (s *Session) handleSystemCommand(line string) (bool, error) {
	switch line {
	case "exit", "quit":
		return true, errExit
	case "help":
		s.printHelp()
		return true, nil
	}
	if strings.HasPrefix(line, "set ") {
		s.handleSet(strings.TrimSpace(strings.TrimPrefix(line, "set ")))
		return true, nil
	}
	if strings.HasPrefix(line, "show ") {
		return true, s.handleShow(strings.TrimSpace(strings.TrimPrefix(line, "show ")))
	}
	return false, nil
}

func (s *Session) handleSet(args string) {
	parts := strings.Fields(args)
	if len(parts) == 0 {
		s.printLine("usage: set base|timeout")
		return
	}
	switch parts[0] {
	case "base":
		if len(parts) < 2 {
			s.printLine("usage: set base http://127.0.0.1:8000")
			return
		}
		s.client.SetBaseURL(parts[1])
		s.printLine("base set to %s", parts[1])
	case "timeout":
		if len(parts) < 2 {
			s.printLine("usage: set timeout 10s")
			return
		}
		dur, err := time.ParseDuration(parts[1])
		if err != nil {
			s.printLine("invalid duration: %v", err)
			return
		}
		s.client.SetTimeout(dur)
		s.printLine("timeout set to %s", dur)
	default:
		s.printLine("unknown set command")
	}
}

func (s *Session) handleShow(args string) error {
	switch args {
	case "config":
		s.printLine("base: %s", s.client.BaseURL())
		s.printLine("timeout: %s", s.client.Timeout())
		s.printLine("transcript: %s", s.transcriptPath)
	case "transcript":
		entries, err := state.Load(s.transcriptPath)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			s.printLine("transcript: <empty>")
			return nil
		}
		for _, e := range entries {
			s.printLine("%s [%s] %s %s", e.Time.Format(time.RFC3339), e.ProblemID, e.Kind, e.Input)
		}
	default:
		s.printLine("usage: show config|transcript")
	}
	return nil
}

func (s *Session) handleCommand(ctx context.Context, line command.Line, raw string) error {
	req, err := command.BuildRequest(line)
	if err != nil {
		return err
	}
	if line.Command.Name != command.Submit {
		resp, err := s.client.Do(ctx, req.Method, req.Path, req.Headers, req.Body)
		if err != nil {
			return err
		}
		s.renderResponse(resp)
		return nil
	}

	problemID := s.activeProblem(ctx)
	resp, err := s.client.Do(ctx, req.Method, req.Path, req.Headers, req.Body)
	if err != nil {
		return err
	}
	s.renderResponse(resp)
	s.record(state.Entry{
		ProblemID:  problemID,
		Kind:       state.KindSubmit,
		Input:      raw,
		StatusCode: resp.StatusCode,
		Output:     string(resp.Body),
	})
	if resp.OK() && s.stage(ctx) == model.StageDone {
		s.printLine("problem %s finished; the results above are final", problemID)
	}
	return nil
}

func (s *Session) runShell(ctx context.Context, line string) error {
	out, err := s.shell.Run(ctx, line, nil)
	text := strings.TrimRight(out.Stdout+out.Stderr, "\n")
	if text != "" {
		s.printLine("%s", text)
	}
	switch {
	case err == nil:
	case appErr.GetCode(err) == appErr.CommandFailed:
		s.printLine("exit %d", out.ExitCode)
	default:
		s.printLine("shell error: %v", err)
	}
	s.record(state.Entry{
		ProblemID: s.activeProblem(ctx),
		Kind:      state.KindShell,
		Input:     line,
		ExitCode:  out.ExitCode,
		Output:    text,
	})
	return nil
}

func (s *Session) activeProblem(ctx context.Context) string {
	id, err := s.client.Problem(ctx)
	if err != nil {
		return ""
	}
	return id
}

func (s *Session) stage(ctx context.Context) model.Stage {
	stage, err := s.client.Status(ctx)
	if err != nil {
		return ""
	}
	return stage
}

func (s *Session) record(e state.Entry) {
	if s.transcriptPath == "" {
		return
	}
	e.Time = time.Now().UTC()
	if err := state.Append(s.transcriptPath, e); err != nil {
		s.printLine("save transcript failed: %v", err)
	}
}

func (s *Session) renderResponse(resp httpclient.ResponseInfo) {
	s.printLine("HTTP %d (%s)", resp.StatusCode, resp.Duration.Round(time.Millisecond))
	if len(resp.Body) == 0 {
		return
	}
	if !resp.OK() {
		if detail := resp.Detail(); detail != "" {
			s.printLine("error: %s", detail)
			return
		}
	}
	if s.prettyJSON {
		var raw interface{}
		if err := json.Unmarshal(resp.Body, &raw); err == nil {
			formatted, _ := json.MarshalIndent(raw, "", "  ")
			s.printLine("%s", string(formatted))
			return
		}
	}
	s.printLine("%s", string(resp.Body))
}

func (s *Session) printHelp() {
	s.printLine("conductor:")
	for _, name := range command.Names(s.commands) {
		cmd := s.commands[name]
		s.printLine("  %-8s %s", name, cmd.Summary)
		if cmd.Example != "" {
			s.printLine("           e.g. %s", cmd.Example)
		}
	}
	s.printLine("system: help | exit | set base|timeout | show config|transcript")
	s.printLine("anything else runs as a command, e.g. kubectl get pods -n test-hotel-reservation")
}

func (s *Session) printLine(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.out, format+"\n", args...)
}
