// Command cli is an interactive human agent for a running conductor.
//
//	cli --config configs/cli.yaml
//	cli --base http://127.0.0.1:8000
package main

import (
	"fmt"
	"os"
	"time"

	"sregrade/internal/cli/command"
	"sregrade/internal/cli/config"
	httpclient "sregrade/internal/cli/http"
	"sregrade/internal/cli/repl"
	"sregrade/internal/common/cmdexec"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "configs/cli.yaml"

var (
	configPath string
	baseURL    string
	timeout    time.Duration
	transcript string
	pretty     bool
)

var rootCmd = &cobra.Command{
	Use:          "cli",
	Short:        "Human agent REPL for the grading conductor",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", defaultConfigPath, "Path to config file")
	rootCmd.Flags().StringVar(&baseURL, "base", "", "Override base URL")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 0, "Override HTTP timeout (e.g. 10s)")
	rootCmd.Flags().StringVar(&transcript, "transcript", "", "Override transcript path")
	rootCmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty print JSON response")
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return fmt.Errorf("load config failed: %w", err)
	}
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if transcript != "" {
		cfg.TranscriptPath = transcript
	}
	if pretty {
		trueValue := true
		cfg.PrettyJSON = &trueValue
	}

	if timeout > 0 {
		cfg.Timeout = timeout
	}

	client := httpclient.New(cfg.BaseURL, cfg.Timeout)

	commands := command.Registry()
	rl, err := repl.NewReadline(cfg.HistoryFile, commands)
	if err != nil {
		return fmt.Errorf("open terminal failed: %w", err)
	}
	defer func() { _ = rl.Close() }()

	session := repl.New(repl.Options{
		Client:         client,
		Commands:       commands,
		Shell:          cmdexec.NewRunner(cmdexec.Config{Timeout: cfg.Shell.Timeout, Dir: cfg.Shell.WorkDir}),
		Input:          rl,
		Output:         rl.Stdout(),
		TranscriptPath: cfg.TranscriptPath,
		PrettyJSON:     cfg.PrettyJSON != nil && *cfg.PrettyJSON,
	})
	return session.Run(cmd.Context())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
