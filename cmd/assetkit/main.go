package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/go-tangra/go-tangra-assets/internal/config"
	"github.com/go-tangra/go-tangra-assets/internal/platform"
	"github.com/go-tangra/go-tangra-assets/internal/plugin"
	_ "github.com/go-tangra/go-tangra-assets/internal/plugin/luaplugin"
	_ "github.com/go-tangra/go-tangra-assets/internal/plugin/wasmplugin"
	_ "github.com/go-tangra/go-tangra-assets/internal/plugins/builtin"
	"github.com/go-tangra/go-tangra-assets/internal/plugins/diagnostics"
	"github.com/go-tangra/go-tangra-assets/internal/task"
	"github.com/go-tangra/go-tangra-assets/internal/ui"
)

var (
	version    = "dev"
	commitHash = "unknown"
	buildDate  = "unknown"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "assetkit",
	Short: "AssetKit - plugin-based hardware asset inventory for Windows",
	Long: `AssetKit scans the local machine with a set of plugins, exports the
results to CSV, JSON, Excel or PDF, runs health diagnostics and syncs the
machine to Snipe-IT.

Built-in plugins are always available. Lua (*.lua) and WebAssembly (*.wasm)
plugins are loaded from the plugin directory.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("assetkit %s (commit: %s, built: %s)\n", version, commitHash, buildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./assetkit.yaml)")
	rootCmd.PersistentFlags().String("plugin-dir", "", "directory of Lua and WASM plugins (default plugins)")
	rootCmd.PersistentFlags().String("database", "", "SQLite scan history path (default assetkit.db)")
	rootCmd.PersistentFlags().String("header", "", "report header line for exports")
	rootCmd.PersistentFlags().Bool("plain", false, "print plain log lines instead of the progress view")
	rootCmd.PersistentFlags().Bool("eventlog", false, "mirror log output to the Windows Event Log")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configuration and applies the persistent flag
// overrides shared by every subcommand.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// CLI flag overrides.
	if v, _ := cmd.Flags().GetString("plugin-dir"); v != "" {
		cfg.PluginDir = v
	}
	if v, _ := cmd.Flags().GetString("database"); v != "" {
		cfg.DatabasePath = v
	}
	if v, _ := cmd.Flags().GetString("header"); v != "" {
		cfg.Header = v
	}
	if v, _ := cmd.Flags().GetBool("plain"); v {
		cfg.UI.Plain = true
	}
	if v, _ := cmd.Flags().GetBool("eventlog"); v {
		cfg.EventLog = true
	}

	if cfg.EventLog && !platform.SetupEventLog(platform.EventSource) {
		log.Printf("Event Log unavailable, logging to stderr only")
	}
	if used := config.Used(); used != "" {
		log.Printf("Using config file %s", used)
	}
	return cfg, nil
}

// openRegistry builds the plugin registry: compiled-in plugins first, then
// the plugin directory.
func openRegistry(cfg *config.Config) *plugin.Registry {
	diagnostics.Configure(diagnostics.Settings{
		DNSTarget:    cfg.Diagnostics.DNSTarget,
		ProbeTimeout: cfg.Diagnostics.ProbeTimeout,
	})

	reg := plugin.NewRegistry()
	reg.AddBuiltins()
	if err := reg.Discover(cfg.PluginDir); err != nil && !errors.Is(err, plugin.ErrPluginDirNotFound) {
		log.Printf("Plugin discovery: %v", err)
	}
	return reg
}

// warnIfNotElevated prints the administrator hint: several WMI classes
// return nothing to unprivileged callers.
func warnIfNotElevated() {
	if runtime.GOOS == "windows" && !platform.IsElevated() {
		log.Printf("Warning: not running as administrator; some hardware details may be missing")
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func interactive(cfg *config.Config) bool {
	if cfg.UI.Plain {
		return false
	}
	fi, err := os.Stdout.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

// runTask dispatches work and blocks until it completes, rendering its
// events with the progress view or as plain log lines.
func runTask[T any](ctx context.Context, cfg *config.Config, title string, work task.Work[T]) (task.Outcome[T], error) {
	if !interactive(cfg) {
		d := task.NewDispatcher(task.LogNotifier{ShowProgress: true})
		return task.Run(ctx, d, work)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan task.Event)
	d := task.NewDispatcher(task.Channel(events))
	var out task.Outcome[T]
	err := task.Dispatch(ctx, d, work, func(o task.Outcome[T]) {
		out = o
		close(events)
	})
	if err != nil {
		return out, err
	}

	watchErr := ui.Watch(title, events)
	if watchErr != nil {
		cancel()
	}
	d.Wait()
	return out, watchErr
}

// outcomeErr turns a failed outcome into the error a command returns.
func outcomeErr[T any](out task.Outcome[T]) error {
	if out.OK {
		return nil
	}
	if out.Err != nil {
		return out.Err
	}
	return errors.New("task failed")
}
