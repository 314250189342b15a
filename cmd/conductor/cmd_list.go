package main

import (
	"fmt"

	"sregrade/internal/common/cmdexec"
	"sregrade/internal/conductor/catalog"
	"sregrade/internal/conductor/problem"

	"github.com/spf13/cobra"
)

var listFilter string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered problem ids",
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listFilter, "filter", "", "Only list ids containing this substring")
}

func runList(cmd *cobra.Command, _ []string) error {
	appCfg, err := loadAppConfig(configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return fmt.Errorf("load app config failed: %w", err)
	}
	reg, err := buildRegistry(appCfg)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for id := range reg.GetProblemIDs(listFilter) {
		fmt.Fprintln(out, id)
	}
	return nil
}

// buildRegistry loads the configured catalog, or the built-in one, into a fresh registry.
func buildRegistry(appCfg *AppConfig) (*problem.Registry, error) {
	cat := catalog.Default()
	if appCfg.Catalog.Path != "" {
		loaded, err := catalog.Load(appCfg.Catalog.Path)
		if err != nil {
			return nil, err
		}
		cat = loaded
	}
	runner := cmdexec.NewRunner(cmdexec.Config{
		Timeout: appCfg.Conductor.CommandTimeout,
		Dir:     appCfg.Conductor.WorkDir,
	})
	reg := problem.NewRegistry()
	if err := cat.Register(reg, runner); err != nil {
		return nil, err
	}
	return reg, nil
}
