package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-tangra/go-tangra-assets/internal/convert"
	"github.com/go-tangra/go-tangra-assets/internal/store"
	"github.com/go-tangra/go-tangra-assets/internal/ui"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and manage stored scans",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored scans, newest first",
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print the records of a stored scan",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored scan",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

var historyPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Purge scans older than the specified number of days",
	RunE:  runHistoryPurge,
}

var (
	historyFilter store.ListFilter
	purgeDays     int
)

func init() {
	historyListCmd.Flags().StringVar(&historyFilter.Hostname, "host", "", "only scans of this host")
	historyListCmd.Flags().StringVar(&historyFilter.SystemSerial, "serial", "", "only scans with this system serial")
	historyListCmd.Flags().IntVar(&historyFilter.PageSize, "page-size", 20, "scans per page")
	historyListCmd.Flags().IntVar(&historyFilter.Page, "page", 1, "page number")

	historyPurgeCmd.Flags().IntVar(&purgeDays, "days", 90, "purge scans older than this many days")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.AddCommand(historyPurgeCmd)
	rootCmd.AddCommand(historyCmd)
}

func openStore(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	db, err := store.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid scan id %q", arg)
	}
	return id, nil
}

func runHistoryList(cmd *cobra.Command, _ []string) error {
	db, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	entries, total, err := db.List(context.Background(), historyFilter)
	if err != nil {
		return err
	}

	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{
			strconv.FormatInt(e.ID, 10),
			e.ScannedAt.Local().Format(time.DateTime),
			e.Hostname,
			e.Username,
			e.SystemSerial,
			strconv.Itoa(e.RecordCount),
		}
	}
	fmt.Println(ui.Table([]string{"ID", "Scanned", "Host", "User", "System Serial", "Records"}, rows))
	fmt.Printf("%d of %d scans\n", len(entries), total)
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	db, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	entry, err := db.Get(context.Background(), id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("scan #%d not found", id)
	}
	if err != nil {
		return err
	}
	records, err := convert.EntryToRecords(entry)
	if err != nil {
		return err
	}

	fmt.Printf("Scan #%d  %s  %s@%s\n", entry.ID, entry.ScannedAt.Local().Format(time.DateTime), entry.Username, entry.Hostname)
	if entry.Header != "" {
		fmt.Println(entry.Header)
	}
	fmt.Println(ui.Records(records))
	return nil
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	db, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Delete(context.Background(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("scan #%d not found", id)
		}
		return err
	}
	fmt.Printf("Deleted scan #%d\n", id)
	return nil
}

func runHistoryPurge(cmd *cobra.Command, _ []string) error {
	db, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := db.Purge(context.Background(), time.Duration(purgeDays)*24*time.Hour)
	if err != nil {
		return fmt.Errorf("purge: %w", err)
	}

	fmt.Printf("Purged %d scans older than %d days\n", n, purgeDays)
	return nil
}
