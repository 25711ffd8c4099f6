package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"os/user"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-tangra/go-tangra-assets/internal/config"
	"github.com/go-tangra/go-tangra-assets/internal/convert"
	"github.com/go-tangra/go-tangra-assets/internal/hwquery"
	"github.com/go-tangra/go-tangra-assets/internal/plugin"
	"github.com/go-tangra/go-tangra-assets/internal/store"
	"github.com/go-tangra/go-tangra-assets/internal/task"
	"github.com/go-tangra/go-tangra-assets/internal/ui"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan this machine with every scan plugin",
	Long: `Run the scan plugins in discovery order and print the combined records.
A plugin that fails is logged and skipped. The result is stored in the scan
history unless --no-history is given.`,
	RunE: runScan,
}

var (
	scanOnly      []string
	scanNoHistory bool
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List loaded plugins by capability",
	RunE:  runPlugins,
}

func init() {
	scanCmd.Flags().StringSliceVar(&scanOnly, "plugin", nil, "run only the named scan plugins")
	scanCmd.Flags().BoolVar(&scanNoHistory, "no-history", false, "do not store the scan")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(pluginsCmd)
}

func runPlugins(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	reg := openRegistry(cfg)
	defer reg.Close()

	var rows [][]string
	add := func(c plugin.Capability, p plugin.Plugin) {
		rows = append(rows, []string{c.String(), p.Name(), plugin.IconName(p)})
	}
	for _, p := range reg.SyncPlugins() {
		add(plugin.CapabilitySync, p)
	}
	for _, p := range reg.ScanPlugins() {
		add(plugin.CapabilityScan, p)
	}
	for _, p := range reg.ExportPlugins() {
		add(plugin.CapabilityExport, p)
	}
	for _, p := range reg.DiagnosticPlugins() {
		add(plugin.CapabilityDiagnostic, p)
	}
	fmt.Println(ui.Table([]string{"Capability", "Name", "Icon"}, rows))

	for _, e := range reg.LoadErrors() {
		fmt.Fprintf(os.Stderr, "load error: %v\n", e)
	}
	return nil
}

func runScan(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	reg := openRegistry(cfg)
	defer reg.Close()

	ctx, stop := signalContext()
	defer stop()

	plugins, err := selectScanPlugins(reg, scanOnly)
	if err != nil {
		return err
	}
	records, err := scan(ctx, cfg, plugins)
	if err != nil {
		return err
	}
	fmt.Println(ui.Records(records))

	if scanNoHistory {
		return nil
	}
	id, err := saveScan(ctx, cfg, records)
	if err != nil {
		return err
	}
	log.Printf("Scan stored in history as #%d", id)
	return nil
}

func selectScanPlugins(reg *plugin.Registry, names []string) ([]plugin.ScanPlugin, error) {
	if len(names) == 0 {
		return reg.ScanPlugins(), nil
	}
	plugins := make([]plugin.ScanPlugin, 0, len(names))
	for _, name := range names {
		p, ok := reg.FindScan(name)
		if !ok {
			return nil, fmt.Errorf("no scan plugin named %q", name)
		}
		plugins = append(plugins, p)
	}
	return plugins, nil
}

func scan(ctx context.Context, cfg *config.Config, plugins []plugin.ScanPlugin) ([]plugin.ScanRecord, error) {
	warnIfNotElevated()
	out, err := runTask(ctx, cfg, "Scanning hardware", task.ScanLoop(hwquery.NewLocal(), plugins))
	if err != nil {
		return nil, err
	}
	if err := outcomeErr(out); err != nil {
		return nil, err
	}
	return out.Value, nil
}

func origin() convert.Origin {
	var o convert.Origin
	o.Hostname, _ = os.Hostname()
	if u, err := user.Current(); err == nil {
		o.Username = u.Username
	}
	return o
}

// saveScan stores records in the history and applies the retention window.
func saveScan(ctx context.Context, cfg *config.Config, records []plugin.ScanRecord) (int64, error) {
	db, err := store.New(cfg.DatabasePath)
	if err != nil {
		return 0, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	entry, err := convert.RecordsToEntry(records, cfg.Header, origin(), time.Now().UTC())
	if err != nil {
		return 0, err
	}
	id, _, err := db.Insert(ctx, entry)
	if err != nil {
		return 0, err
	}

	if cfg.HistoryRetentionDays > 0 {
		n, err := db.Purge(ctx, time.Duration(cfg.HistoryRetentionDays)*24*time.Hour)
		if err != nil {
			log.Printf("History purge failed: %v", err)
		} else if n > 0 {
			log.Printf("Purged %d scans older than %d days", n, cfg.HistoryRetentionDays)
		}
	}
	return id, nil
}

// recordsFor returns the records export and sync work on: the given history
// entry, else this machine's latest stored scan, else a fresh scan.
func recordsFor(ctx context.Context, cfg *config.Config, reg *plugin.Registry, historyID int64, rescan bool) ([]plugin.ScanRecord, error) {
	if !rescan {
		records, err := storedRecords(ctx, cfg, historyID)
		switch {
		case err == nil:
			return records, nil
		case historyID != 0 || !errors.Is(err, sql.ErrNoRows):
			return nil, err
		}
		log.Printf("No stored scan for this machine, scanning now")
	}

	records, err := scan(ctx, cfg, reg.ScanPlugins())
	if err != nil {
		return nil, err
	}
	if _, err := saveScan(ctx, cfg, records); err != nil {
		log.Printf("Could not store scan: %v", err)
	}
	return records, nil
}

func storedRecords(ctx context.Context, cfg *config.Config, id int64) ([]plugin.ScanRecord, error) {
	db, err := store.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	var entry *store.ScanEntry
	if id != 0 {
		entry, err = db.Get(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("scan #%d not found", id)
		}
	} else {
		entry, err = db.Latest(ctx, origin().Hostname)
	}
	if err != nil {
		return nil, err
	}

	log.Printf("Using scan #%d taken %s on %s", entry.ID,
		entry.ScannedAt.Local().Format(time.DateTime), entry.Hostname)
	return convert.EntryToRecords(entry)
}
