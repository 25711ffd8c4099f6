// Package snipeit holds the built-in sync plugin that pushes the scanned
// machine into a Snipe-IT asset inventory.
package snipeit

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/go-tangra/go-tangra-assets/internal/plugin"
)

func init() {
	plugin.RegisterBuiltin("snipeit.Sync", func() (any, error) { return New(), nil })
}

// Keys read from the sync configuration.
const (
	ConfigAPIKey      = "key"
	ConfigInternalURL = "internal_url"
	ConfigExternalURL = "external_url"
	ConfigStatusID    = "status_id"
	ConfigCategoryID  = "category_id"
)

// Defaults matching a stock Snipe-IT install: status 2 is "Ready to Deploy",
// category 1 the first asset category.
const (
	DefaultStatusID   = 2
	DefaultCategoryID = 1
)

var (
	ErrNoAPIKey    = errors.New("no Snipe-IT API key configured")
	ErrNoURL       = errors.New("no Snipe-IT internal or external URL configured")
	ErrUnreachable = errors.New("neither Snipe-IT URL is reachable")
)

// Plugin syncs motherboard records, which identify the machine, as
// Snipe-IT hardware assets.
type Plugin struct {
	InternalTimeout time.Duration
	ExternalTimeout time.Duration
	RequestTimeout  time.Duration
}

// New returns a Plugin with the probe timeouts of a LAN and a WAN
// connection.
func New() *Plugin {
	return &Plugin{
		InternalTimeout: 2 * time.Second,
		ExternalTimeout: 5 * time.Second,
		RequestTimeout:  10 * time.Second,
	}
}

func (p *Plugin) Name() string     { return "Sync to Snipe-IT" }
func (p *Plugin) IconName() string { return "sync" }

// Assets returns the records that identify a machine: motherboard records
// with a serial number.
func Assets(records []plugin.ScanRecord) []plugin.ScanRecord {
	var out []plugin.ScanRecord
	for _, r := range records {
		if r.Category == plugin.CategoryMotherboard && plugin.OrUnknown(r.SerialNumber) != plugin.Unknown {
			out = append(out, r)
		}
	}
	return out
}

type settings struct {
	statusID   int
	categoryID int
}

func intSetting(cfg plugin.SyncConfig, key string, def int) (int, error) {
	v := cfg.Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, v)
	}
	return n, nil
}

// Sync connects to the first reachable URL and creates every asset that
// Snipe-IT does not know yet. Configuration and connection problems fail
// the sync; a failed asset is logged and reported as a non-fatal error.
func (p *Plugin) Sync(ctx context.Context, tc plugin.TaskContext, records []plugin.ScanRecord, cfg plugin.SyncConfig) error {
	key := cfg.Get(ConfigAPIKey)
	if key == "" {
		return ErrNoAPIKey
	}
	internal, external := cfg.Get(ConfigInternalURL), cfg.Get(ConfigExternalURL)
	if internal == "" && external == "" {
		return ErrNoURL
	}
	var (
		s   settings
		err error
	)
	if s.statusID, err = intSetting(cfg, ConfigStatusID, DefaultStatusID); err != nil {
		return err
	}
	if s.categoryID, err = intSetting(cfg, ConfigCategoryID, DefaultCategoryID); err != nil {
		return err
	}

	c, err := p.connect(ctx, tc, key, internal, external)
	if err != nil {
		return err
	}
	defer c.Close()

	tc.Log(fmt.Sprintf("--- Syncing assets to Snipe-IT (%s) ---", c.url))
	assets := Assets(records)
	if len(assets) == 0 {
		tc.Log("No motherboard record with a serial number to sync.")
		tc.Progress(100)
		return nil
	}

	var created, existing, failed int
	for i, a := range assets {
		tc.Log(fmt.Sprintf("--- Processing serial %s ---", a.SerialNumber))
		isNew, err := p.syncAsset(ctx, tc, c, a, s)
		switch {
		case errors.Is(err, ErrUnauthorized):
			return err
		case err != nil:
			failed++
			tc.Log(fmt.Sprintf("  -> Failed: %v", err))
		case isNew:
			created++
		default:
			existing++
		}
		tc.Progress((i + 1) * 100 / len(assets))
	}

	tc.Log(fmt.Sprintf("--- Snipe-IT sync complete: %d created, %d already present, %d failed ---", created, existing, failed))
	if failed > 0 {
		tc.Error("Snipe-IT sync", fmt.Sprintf("%d of %d assets could not be synced; see the log for details.", failed, len(assets)))
	}
	return nil
}

// connect returns a client for the internal URL, or the external one when
// the internal URL does not answer in time.
func (p *Plugin) connect(ctx context.Context, tc plugin.TaskContext, key, internal, external string) (*client, error) {
	candidates := []struct {
		label   string
		url     string
		timeout time.Duration
	}{
		{"internal", internal, p.InternalTimeout},
		{"external", external, p.ExternalTimeout},
	}
	for _, cand := range candidates {
		if cand.url == "" {
			continue
		}
		tc.Log(fmt.Sprintf("  -> Trying %s URL %s...", cand.label, cand.url))
		c, err := dial(ctx, cand.url, key, p.RequestTimeout)
		if err == nil {
			probeCtx, cancel := context.WithTimeout(ctx, cand.timeout)
			err = c.probe(probeCtx)
			cancel()
			if err != nil {
				c.Close()
			}
		}
		if errors.Is(err, ErrUnauthorized) {
			return nil, err
		}
		if err != nil {
			tc.Log(fmt.Sprintf("  -> %s URL failed: %v", cand.label, err))
			continue
		}
		tc.Log(fmt.Sprintf("  -> Connected to %s URL.", cand.label))
		return c, nil
	}
	return nil, ErrUnreachable
}

// syncAsset makes sure a exists in Snipe-IT and reports whether it was
// created.
func (p *Plugin) syncAsset(ctx context.Context, tc plugin.TaskContext, c *client, a plugin.ScanRecord, s settings) (bool, error) {
	manufacturer := plugin.OrUnknown(a.Brand)
	model := plugin.OrUnknown(a.Model)

	manufacturerID, err := getOrCreate(ctx, tc, c, "/manufacturers", manufacturer, nil)
	if err != nil {
		return false, err
	}
	modelBody, err := jsonObject("name", model, "category_id", s.categoryID, "manufacturer_id", manufacturerID)
	if err != nil {
		return false, err
	}
	modelID, err := getOrCreate(ctx, tc, c, "/models", model, modelBody)
	if err != nil {
		return false, err
	}

	found, err := c.get(ctx, "/hardware/byserial/"+url.PathEscape(a.SerialNumber), nil)
	if err != nil {
		return false, err
	}
	if found.Get("total").Int() > 0 {
		tc.Log(fmt.Sprintf("  -> Asset already present (ID: %d).", found.Get("rows.0.id").Int()))
		return false, nil
	}

	tc.Log("  -> Asset not found, creating...")
	assetBody, err := jsonObject(
		"model_id", modelID,
		"serial", a.SerialNumber,
		"name", manufacturer+" "+model,
		"status_id", s.statusID,
		"asset_tag", a.SerialNumber,
	)
	if err != nil {
		return false, err
	}
	res, err := c.post(ctx, "/hardware", assetBody)
	if err != nil {
		return false, err
	}
	if res.Get("status").String() != "success" {
		return false, fmt.Errorf("create asset %s: unexpected reply %s", a.SerialNumber, res.Raw)
	}
	tc.Log(fmt.Sprintf("  -> Created asset (ID: %d).", res.Get("payload.id").Int()))
	return true, nil
}

// getOrCreate returns the ID of the item at endpoint whose name matches
// name case-insensitively, creating it with body (or {"name": name}) when
// the search finds none.
func getOrCreate(ctx context.Context, tc plugin.TaskContext, c *client, endpoint, name string, body []byte) (int64, error) {
	tc.Log(fmt.Sprintf("  -> Looking up %s...", name))
	found, err := c.get(ctx, endpoint, url.Values{"search": {name}})
	if err != nil {
		return 0, err
	}
	var id int64
	found.Get("rows").ForEach(func(_, row gjson.Result) bool {
		if strings.EqualFold(row.Get("name").String(), name) {
			id = row.Get("id").Int()
			return false
		}
		return true
	})
	if id != 0 {
		tc.Log(fmt.Sprintf("  -> Found %q (ID: %d)", name, id))
		return id, nil
	}

	tc.Log(fmt.Sprintf("  -> %q not found, creating...", name))
	if body == nil {
		if body, err = jsonObject("name", name); err != nil {
			return 0, err
		}
	}
	res, err := c.post(ctx, endpoint, body)
	if err != nil {
		return 0, err
	}
	if res.Get("status").String() != "success" || !res.Get("payload.id").Exists() {
		return 0, fmt.Errorf("create %q: unexpected reply %s", name, res.Raw)
	}
	id = res.Get("payload.id").Int()
	tc.Log(fmt.Sprintf("  -> Created %q (ID: %d)", name, id))
	return id, nil
}

// jsonObject builds a JSON object from alternating keys and values.
func jsonObject(kv ...any) ([]byte, error) {
	out := []byte("{}")
	for i := 0; i+1 < len(kv); i += 2 {
		var err error
		if out, err = sjson.SetBytes(out, kv[i].(string), kv[i+1]); err != nil {
			return nil, err
		}
	}
	return out, nil
}
