package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-tangra/go-tangra-assets/internal/platform"
	"github.com/go-tangra/go-tangra-assets/internal/task"
	"github.com/go-tangra/go-tangra-assets/internal/ui"
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Run every diagnostic plugin and print the report",
	RunE:  runDiagnose,
}

var eventlogCmd = &cobra.Command{
	Use:   "eventlog",
	Short: "Manage the Windows Event Log source used by --eventlog",
}

var eventlogInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Register the event source (requires administrator)",
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := platform.InstallEventSource(platform.EventSource); err != nil {
			return err
		}
		fmt.Printf("Event source %s installed\n", platform.EventSource)
		return nil
	},
}

var eventlogUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the event source (requires administrator)",
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := platform.RemoveEventSource(platform.EventSource); err != nil {
			return err
		}
		fmt.Printf("Event source %s removed\n", platform.EventSource)
		return nil
	},
}

func init() {
	eventlogCmd.AddCommand(eventlogInstallCmd)
	eventlogCmd.AddCommand(eventlogUninstallCmd)

	rootCmd.AddCommand(diagnoseCmd)
	rootCmd.AddCommand(eventlogCmd)
}

func runDiagnose(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	reg := openRegistry(cfg)
	defer reg.Close()

	ctx, stop := signalContext()
	defer stop()

	warnIfNotElevated()
	out, err := runTask(ctx, cfg, "Running diagnostics", task.DiagnosticLoop(reg.DiagnosticPlugins()))
	if err != nil {
		return err
	}
	if err := outcomeErr(out); err != nil {
		return err
	}

	fmt.Println(ui.Diagnostics(out.Value))
	if s := ui.Summary(out.Value); s != "" {
		fmt.Println(s)
	}
	return nil
}
