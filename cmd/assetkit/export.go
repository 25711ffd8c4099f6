package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-tangra/go-tangra-assets/internal/config"
	"github.com/go-tangra/go-tangra-assets/internal/hwquery"
	"github.com/go-tangra/go-tangra-assets/internal/plugin"
	"github.com/go-tangra/go-tangra-assets/internal/plugins/exporters"
	"github.com/go-tangra/go-tangra-assets/internal/task"
	"github.com/go-tangra/go-tangra-assets/internal/ui"
)

var exportCmd = &cobra.Command{
	Use:   "export <plugin>",
	Short: "Export scan records with an export plugin",
	Long: `Export the latest stored scan of this machine with the named export plugin,
for example "Export to Excel". Use --from-history to export an older scan or
--rescan to scan first.

Without --output the file is written to output_dir as <file_base_name>-NNNN
with the plugin's extension.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var printersCmd = &cobra.Command{
	Use:   "printers",
	Short: "List installed printers",
	RunE:  runPrinters,
}

var (
	exportFromHistory int64
	exportRescan      bool
	exportOutput      string
	exportPrinter     string
)

func init() {
	exportCmd.Flags().Int64Var(&exportFromHistory, "from-history", 0, "export the stored scan with this ID")
	exportCmd.Flags().BoolVar(&exportRescan, "rescan", false, "scan this machine before exporting")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file path")
	exportCmd.Flags().String("output-dir", "", "directory for generated file names (default .)")
	exportCmd.Flags().StringVar(&exportPrinter, "printer", "", "printer for print exports (default printer when empty)")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(printersCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("output-dir"); v != "" {
		cfg.OutputDir = v
	}
	reg := openRegistry(cfg)
	defer reg.Close()

	p, ok := reg.FindExport(args[0])
	if !ok {
		return fmt.Errorf("no export plugin named %q", args[0])
	}

	ctx, stop := signalContext()
	defer stop()

	records, err := recordsFor(ctx, cfg, reg, exportFromHistory, exportRescan)
	if err != nil {
		return err
	}

	req := plugin.ExportRequest{
		Records: records,
		Header:  cfg.Header,
		Printer: plugin.None[string](),
	}
	if exportPrinter != "" {
		req.Printer = plugin.Some(exportPrinter)
	}
	if req.OutputPath, err = outputPath(cfg, p); err != nil {
		return err
	}

	out, err := runTask(ctx, cfg, p.Name(), task.ExportJob(p, req))
	if err != nil {
		return err
	}
	if err := outcomeErr(out); err != nil {
		return err
	}
	return finishExport(ctx, cfg, out.Value)
}

// outputPath picks the export destination. Plugins that declare an empty
// file extension do not write to a user path.
func outputPath(cfg *config.Config, p plugin.ExportPlugin) (string, error) {
	if exportOutput != "" {
		return exportOutput, nil
	}
	if ft, ok := p.(plugin.FileTarget); ok && ft.FileExtension() == "" {
		return "", nil
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	return exporters.NextFileName(cfg.OutputDir, cfg.FileBaseName, plugin.FileExtension(p))
}

func finishExport(ctx context.Context, cfg *config.Config, res plugin.ExportResult) error {
	switch r := res.(type) {
	case plugin.FileWritten:
		fmt.Printf("Exported to %s\n", r.Path)
	case plugin.ManualFollowUp:
		fmt.Printf("Opened %s (%s)\n", r.Path, r.Action)
		cleanupLater(ctx, r.Path, cfg.PrintCleanupDelay)
	case plugin.ExportFailure:
		return fmt.Errorf("export failed: %s", r.Reason)
	default:
		return fmt.Errorf("export returned unexpected result %T", res)
	}
	return nil
}

// cleanupLater removes a follow-up artifact once the viewer has had time to
// open it. Interrupting the wait removes it at once.
func cleanupLater(ctx context.Context, path string, delay time.Duration) {
	if delay > 0 {
		log.Printf("Removing %s in %s", path, delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
		}
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("Could not remove temporary file %s: %v", path, err)
	}
}

func runPrinters(cmd *cobra.Command, _ []string) error {
	if _, err := loadConfig(cmd); err != nil {
		return err
	}

	var printers []hwquery.Win32Printer
	q := hwquery.NewLocal()
	if err := q.Query(hwquery.SelectQuery("Win32_Printer", &printers), &printers); err != nil {
		return fmt.Errorf("list printers: %w", err)
	}

	rows := make([][]string, len(printers))
	for i, p := range printers {
		def := ""
		if p.Default {
			def = "yes"
		}
		rows[i] = []string{p.Name, def}
	}
	fmt.Println(ui.Table([]string{"Printer", "Default"}, rows))
	return nil
}
