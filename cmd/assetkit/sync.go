package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/go-tangra/go-tangra-assets/internal/config"
	"github.com/go-tangra/go-tangra-assets/internal/plugin"
	"github.com/go-tangra/go-tangra-assets/internal/plugins/snipeit"
	"github.com/go-tangra/go-tangra-assets/internal/secrets"
	"github.com/go-tangra/go-tangra-assets/internal/task"
)

var syncCmd = &cobra.Command{
	Use:   "sync [plugin]",
	Short: "Push the latest scan to an inventory system",
	Long: `Sync the latest stored scan of this machine with a sync plugin (the first
one loaded when no name is given). The Snipe-IT API key is read from the OS
keyring; store it with "assetkit sync set-key".`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

var syncSetKeyCmd = &cobra.Command{
	Use:   "set-key [key]",
	Short: "Store the Snipe-IT API key in the OS keyring",
	Long: `Store the Snipe-IT API key in the OS keyring. The key is read from standard
input when not given as an argument. --remove deletes the stored key.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSyncSetKey,
}

var (
	syncFromHistory int64
	syncRescan      bool
	syncRemoveKey   bool
)

func init() {
	syncCmd.Flags().Int64Var(&syncFromHistory, "from-history", 0, "sync the stored scan with this ID")
	syncCmd.Flags().BoolVar(&syncRescan, "rescan", false, "scan this machine before syncing")
	syncCmd.Flags().String("api-key", "", "Snipe-IT API key (overrides the keyring)")
	syncSetKeyCmd.Flags().BoolVar(&syncRemoveKey, "remove", false, "remove the stored key")

	syncCmd.AddCommand(syncSetKeyCmd)
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("api-key"); v != "" {
		cfg.SnipeIT.APIKey = v
	}
	reg := openRegistry(cfg)
	defer reg.Close()

	var p plugin.SyncPlugin
	if len(args) == 1 {
		var ok bool
		if p, ok = reg.FindSync(args[0]); !ok {
			return fmt.Errorf("no sync plugin named %q", args[0])
		}
	} else {
		plugins := reg.SyncPlugins()
		if len(plugins) == 0 {
			return fmt.Errorf("no sync plugin loaded")
		}
		p = plugins[0]
	}

	ctx, stop := signalContext()
	defer stop()

	records, err := recordsFor(ctx, cfg, reg, syncFromHistory, syncRescan)
	if err != nil {
		return err
	}

	out, err := runTask(ctx, cfg, p.Name(), task.SyncJob(p, records, syncConfig(cfg)))
	if err != nil {
		return err
	}
	return outcomeErr(out)
}

// syncConfig builds the settings handed to sync plugins. A keyring failure
// is logged; the plugin then reports the missing key itself.
func syncConfig(cfg *config.Config) plugin.SyncConfig {
	key := cfg.SnipeIT.APIKey
	if key == "" {
		if ring, err := secrets.Open(); err != nil {
			log.Printf("Keyring unavailable: %v", err)
		} else if key, err = ring.Resolve(secrets.SnipeITAPIKey, ""); err != nil {
			log.Printf("Could not read API key from keyring: %v", err)
		}
	}

	return plugin.SyncConfig{
		snipeit.ConfigAPIKey:      key,
		snipeit.ConfigInternalURL: cfg.SnipeIT.InternalURL,
		snipeit.ConfigExternalURL: cfg.SnipeIT.ExternalURL,
		snipeit.ConfigStatusID:    strconv.Itoa(cfg.SnipeIT.StatusID),
		snipeit.ConfigCategoryID:  strconv.Itoa(cfg.SnipeIT.CategoryID),
	}
}

func runSyncSetKey(_ *cobra.Command, args []string) error {
	ring, err := secrets.Open()
	if err != nil {
		return err
	}

	if syncRemoveKey {
		if err := ring.Remove(secrets.SnipeITAPIKey); err != nil {
			return err
		}
		fmt.Println("Snipe-IT API key removed")
		return nil
	}

	var key string
	if len(args) == 1 {
		key = args[0]
	} else {
		fmt.Fprint(os.Stderr, "Snipe-IT API key: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read key: %w", err)
		}
		key = line
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return snipeit.ErrNoAPIKey
	}

	if err := ring.Set(secrets.SnipeITAPIKey, key); err != nil {
		return err
	}
	fmt.Println("Snipe-IT API key stored")
	return nil
}
