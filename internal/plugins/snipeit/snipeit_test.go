package snipeit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/go-tangra/go-tangra-assets/internal/plugin"
)

// fakeSnipe is a minimal in-memory Snipe-IT API.
type fakeSnipe struct {
	key    string
	prefix string

	mu            sync.Mutex
	manufacturers map[string]int
	models        map[string]int
	hardware      map[string]int
	created       []string
	posts         map[string][]byte
}

func newFakeSnipe(prefix string) *fakeSnipe {
	return &fakeSnipe{
		key:           "secret",
		prefix:        prefix,
		manufacturers: map[string]int{"Dell Inc.": 7},
		models:        map[string]int{},
		hardware:      map[string]int{"EXISTING1": 99},
		posts:         map[string][]byte{},
	}
}

func (f *fakeSnipe) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer "+f.key {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"status":"error","messages":"Unauthorized."}`)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, f.prefix+"/api/v1")
	w.Header().Set("Content-Type", "application/json")

	switch {
	case path == "/statuslabels":
		fmt.Fprint(w, `{"total":1,"rows":[{"id":2,"name":"Ready to Deploy"}]}`)
	case strings.HasPrefix(path, "/hardware/byserial/"):
		serial := strings.TrimPrefix(path, "/hardware/byserial/")
		if id, ok := f.hardware[serial]; ok {
			fmt.Fprintf(w, `{"total":1,"rows":[{"id":%d}]}`, id)
			return
		}
		fmt.Fprint(w, `{"total":0,"rows":[]}`)
	case path == "/manufacturers" || path == "/models" || path == "/hardware":
		items := map[string]map[string]int{"/manufacturers": f.manufacturers, "/models": f.models, "/hardware": f.hardware}[path]
		if r.Method == http.MethodGet {
			search := strings.ToLower(r.URL.Query().Get("search"))
			var rows []map[string]any
			for name, id := range items {
				if strings.Contains(strings.ToLower(name), search) {
					rows = append(rows, map[string]any{"id": id, "name": name})
				}
			}
			json.NewEncoder(w).Encode(map[string]any{"total": len(rows), "rows": rows})
			return
		}
		body, _ := io.ReadAll(r.Body)
		f.posts[path] = body
		key := gjson.GetBytes(body, "name").String()
		if path == "/hardware" {
			key = gjson.GetBytes(body, "serial").String()
		}
		id := 100 + len(items)
		items[key] = id
		f.created = append(f.created, path+":"+key)
		fmt.Fprintf(w, `{"status":"success","messages":"created","payload":{"id":%d}}`, id)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type recorder struct {
	lines    []string
	progress []int
	errors   []string
}

func (r *recorder) Log(line string) { r.lines = append(r.lines, line) }
func (r *recorder) Progress(p int) { r.progress = append(r.progress, p) }
func (r *recorder) Error(title, msg string) { r.errors = append(r.errors, title+": "+msg) }
func (r *recorder) joined() string { return strings.Join(r.lines, "\n") }

func board(brand, model, serial string) plugin.ScanRecord {
	r := plugin.NewRecord(plugin.CategoryMotherboard)
	r.Brand, r.Model, r.SerialNumber = brand, model, serial
	return r
}

func fastPlugin() *Plugin {
	return &Plugin{InternalTimeout: 500 * time.Millisecond, ExternalTimeout: time.Second, RequestTimeout: 2 * time.Second}
}

// deadURL returns the URL of a server that is no longer listening.
func deadURL(t *testing.T) string {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	return srv.URL
}

func TestAssets(t *testing.T) {
	cpu := plugin.NewRecord(plugin.CategoryCPU)
	cpu.SerialNumber = "BFEBFBFF"
	records := []plugin.ScanRecord{cpu, board("Dell", "X", "ABC"), board("Dell", "X", plugin.Unknown), board("Dell", "X", " ")}

	assets := Assets(records)
	require.Len(t, assets, 1)
	assert.Equal(t, "ABC", assets[0].SerialNumber)
}

func TestSyncCreatesAsset(t *testing.T) {
	fake := newFakeSnipe("/snipe")
	srv := httptest.NewServer(fake)
	defer srv.Close()

	tc := &recorder{}
	err := fastPlugin().Sync(context.Background(), tc, []plugin.ScanRecord{
		board("Dell Inc.", "OptiPlex 7090", "7XK2LM3"),
		board("LENOVO", "ThinkPad T14", "EXISTING1"),
	}, plugin.SyncConfig{
		ConfigAPIKey:      "secret",
		ConfigInternalURL: deadURL(t),
		ConfigExternalURL: srv.URL + "/snipe/",
		ConfigStatusID:    "4",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/models:OptiPlex 7090",
		"/hardware:7XK2LM3",
		"/manufacturers:LENOVO",
		"/models:ThinkPad T14",
	}, fake.created)

	asset := gjson.ParseBytes(fake.posts["/hardware"])
	assert.Equal(t, int64(4), asset.Get("status_id").Int())
	assert.Equal(t, "7XK2LM3", asset.Get("asset_tag").String())
	assert.Equal(t, "Dell Inc. OptiPlex 7090", asset.Get("name").String())
	assert.Equal(t, int64(100), asset.Get("model_id").Int())

	model := gjson.ParseBytes(fake.posts["/models"])
	assert.Equal(t, int64(DefaultCategoryID), model.Get("category_id").Int())

	log := tc.joined()
	assert.Contains(t, log, "internal URL failed")
	assert.Contains(t, log, "Connected to external URL.")
	assert.Contains(t, log, `Found "Dell Inc." (ID: 7)`)
	assert.Contains(t, log, "Asset already present (ID: 99)")
	assert.Contains(t, log, "1 created, 1 already present, 0 failed")
	assert.Equal(t, []int{50, 100}, tc.progress)
	assert.Empty(t, tc.errors)
}

func TestSyncConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  plugin.SyncConfig
		want error
	}{
		{"no key", plugin.SyncConfig{ConfigInternalURL: "http://x"}, ErrNoAPIKey},
		{"no url", plugin.SyncConfig{ConfigAPIKey: "k"}, ErrNoURL},
		{"unreachable", plugin.SyncConfig{ConfigAPIKey: "k", ConfigInternalURL: deadURL(t), ConfigExternalURL: deadURL(t)}, ErrUnreachable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fastPlugin().Sync(context.Background(), &recorder{}, nil, tt.cfg)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	err := fastPlugin().Sync(context.Background(), &recorder{}, nil, plugin.SyncConfig{
		ConfigAPIKey: "k", ConfigInternalURL: "http://x", ConfigStatusID: "ready",
	})
	assert.ErrorContains(t, err, `invalid status_id "ready"`)
}

func TestSyncRejectedKey(t *testing.T) {
	srv := httptest.NewServer(newFakeSnipe(""))
	defer srv.Close()

	err := fastPlugin().Sync(context.Background(), &recorder{}, []plugin.ScanRecord{board("Dell", "X", "S1")},
		plugin.SyncConfig{ConfigAPIKey: "wrong", ConfigInternalURL: srv.URL})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSyncNothingToDo(t *testing.T) {
	srv := httptest.NewServer(newFakeSnipe(""))
	defer srv.Close()

	tc := &recorder{}
	err := fastPlugin().Sync(context.Background(), tc, []plugin.ScanRecord{plugin.NewRecord(plugin.CategoryCPU)},
		plugin.SyncConfig{ConfigAPIKey: "secret", ConfigInternalURL: srv.URL})
	require.NoError(t, err)
	assert.Contains(t, tc.joined(), "No motherboard record")
	assert.Equal(t, []int{100}, tc.progress)
}

func TestSyncReportsFailedAssets(t *testing.T) {
	fake := newFakeSnipe("")
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/hardware", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			fmt.Fprint(w, `{"status":"error","messages":{"asset_tag":["taken"]}}`)
			return
		}
		fake.ServeHTTP(w, r)
	})
	mux.Handle("/", fake)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	tc := &recorder{}
	err := fastPlugin().Sync(context.Background(), tc, []plugin.ScanRecord{board("Dell Inc.", "OptiPlex", "NEW1")},
		plugin.SyncConfig{ConfigAPIKey: "secret", ConfigInternalURL: srv.URL})
	require.NoError(t, err)
	assert.Contains(t, tc.joined(), "taken")
	require.Len(t, tc.errors, 1)
	assert.Contains(t, tc.errors[0], "1 of 1 assets")
}

func TestJSONObject(t *testing.T) {
	b, err := jsonObject("name", `Dell "Inc."`, "category_id", 3)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Dell \"Inc.\"","category_id":3}`, string(b))
}
