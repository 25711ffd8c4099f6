package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/go-tangra/go-tangra-assets/internal/config"
	"github.com/go-tangra/go-tangra-assets/internal/daemon"
	"github.com/go-tangra/go-tangra-assets/internal/platform"
	"github.com/go-tangra/go-tangra-assets/internal/task"
	"github.com/go-tangra/go-tangra-assets/internal/winsvc"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Scan on a schedule, store every scan and optionally sync it",
	Long: `Run the inventory agent: scan now and then every agent.interval, store each
scan in the history and, with agent.sync, push it to every sync plugin.
Failed cycles are retried with backoff.

Under the Windows Service Control Manager the agent logs to the Event Log.`,
	RunE: runAgent,
}

var agentInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the agent as a Windows service",
	RunE:  runAgentInstall,
}

var agentUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall the agent Windows service",
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := winsvc.Agent.Uninstall(); err != nil {
			return err
		}
		log.Printf("Service %s uninstalled successfully", winsvc.Agent.Name)
		return nil
	},
}

func init() {
	agentCmd.PersistentFlags().Duration("interval", 0, "time between inventory cycles (default 24h)")
	agentCmd.PersistentFlags().Bool("sync", false, "sync every scan with the loaded sync plugins")

	agentCmd.AddCommand(agentInstallCmd)
	agentCmd.AddCommand(agentUninstallCmd)
	rootCmd.AddCommand(agentCmd)
}

func runAgent(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetDuration("interval"); v > 0 {
		cfg.Agent.Interval = v
	}
	if v, _ := cmd.Flags().GetBool("sync"); v {
		cfg.Agent.Sync = true
	}
	cfg.UI.Plain = true

	// Windows service mode.
	if winsvc.IsWindowsService() {
		platform.SetupEventLog(winsvc.Agent.Name)
		return winsvc.Agent.Run(func(ctx context.Context) error {
			return runAgentLoop(ctx, cfg)
		})
	}

	ctx, stop := signalContext()
	defer stop()
	return runAgentLoop(ctx, cfg)
}

func runAgentLoop(ctx context.Context, cfg *config.Config) error {
	reg := openRegistry(cfg)
	defer reg.Close()

	return daemon.Run(ctx, daemon.Config{Interval: cfg.Agent.Interval}, func(ctx context.Context) error {
		records, err := scan(ctx, cfg, reg.ScanPlugins())
		if err != nil {
			return err
		}
		id, err := saveScan(ctx, cfg, records)
		if err != nil {
			return err
		}
		log.Printf("Scan #%d stored (%d records)", id, len(records))

		if !cfg.Agent.Sync {
			return nil
		}
		var errs []error
		for _, p := range reg.SyncPlugins() {
			out, err := runTask(ctx, cfg, p.Name(), task.SyncJob(p, records, syncConfig(cfg)))
			if err == nil {
				err = outcomeErr(out)
			}
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			}
		}
		return errors.Join(errs...)
	})
}

func runAgentInstall(cmd *cobra.Command, _ []string) error {
	exePath, err := winsvc.ExePath()
	if err != nil {
		return err
	}
	args, err := agentServiceArgs(cmd)
	if err != nil {
		return err
	}

	if err := winsvc.Agent.Install(exePath, args); err != nil {
		return err
	}
	log.Printf("Service %s installed successfully", winsvc.Agent.Name)
	return nil
}

// agentServiceArgs builds the service command line, carrying over the
// config file and any agent flags given at install time.
func agentServiceArgs(cmd *cobra.Command) ([]string, error) {
	args := []string{"agent"}
	if cfgFile != "" {
		abs, err := filepath.Abs(cfgFile)
		if err != nil {
			return nil, err
		}
		args = append(args, "--config", abs)
	}
	if cmd.Flags().Changed("interval") {
		v, _ := cmd.Flags().GetDuration("interval")
		args = append(args, "--interval", v.String())
	}
	if cmd.Flags().Changed("sync") {
		v, _ := cmd.Flags().GetBool("sync")
		args = append(args, "--sync="+strconv.FormatBool(v))
	}
	return args, nil
}
