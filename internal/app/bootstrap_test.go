package app

import (
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vapi/internal/catalog"
	"vapi/internal/config"
	"vapi/internal/docstore"
)

func testSettings(t *testing.T) config.Settings {
	t.Helper()
	settings := config.GetDefaultSettings(t.TempDir())
	settings.Listen = "127.0.0.1:18080"
	settings.Watcher.Debounce = 20 * time.Millisecond
	return settings
}

func TestNewApplication_LoadsSettingsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.yaml"), []byte(`
configDir: records
listen: "127.0.0.1:18081"
watcher:
  enabled: false
`), 0644))

	cfg := NewConfig(false, dir)
	cfg.Silent = true
	application, err := NewApplication(context.Background(), cfg)
	require.NoError(t, err)
	defer application.Close(context.Background())

	services := application.Services()
	assert.Equal(t, filepath.Join(dir, "records"), services.Storage.Root())
	assert.Nil(t, services.Watcher)
	assert.Equal(t, "127.0.0.1:18081", services.Server.Addr())
}

func TestNewApplication_Overrides(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		check   func(*testing.T, *config.Settings)
	}{
		{
			name:   "listen",
			mutate: func(c *Config) { c.Listen = "127.0.0.1:18082" },
			check: func(t *testing.T, s *config.Settings) {
				assert.Equal(t, "127.0.0.1:18082", s.Listen)
			},
		},
		{
			name:   "debug",
			mutate: func(c *Config) { c.Debug = true },
			check: func(t *testing.T, s *config.Settings) {
				assert.Equal(t, "debug", s.LogLevel)
			},
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.StoreDriver = "postgres" },
			wantErr: true,
		},
		{
			name:    "mongo without uri",
			mutate:  func(c *Config) { c.StoreDriver = config.StoreDriverMongo },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := testSettings(t)
			cfg := &Config{Silent: true, Settings: &settings}
			tt.mutate(cfg)

			application, err := NewApplication(context.Background(), cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer application.Close(context.Background())
			tt.check(t, cfg.Settings)
		})
	}
}

func TestReconcileOnce_DropsOrphans(t *testing.T) {
	settings := testSettings(t)
	application, err := NewApplication(context.Background(), &Config{Silent: true, Settings: &settings})
	require.NoError(t, err)
	defer application.Close(context.Background())

	ctx := context.Background()
	services := application.Services()
	require.NoError(t, services.Configs.Put(ctx, "Shop", &catalog.ServiceConfig{
		Name:     "Shop",
		IsActive: true,
		Entities: []catalog.EntityConfig{{Name: "Orders", IsActive: true}},
	}))
	_, err = services.DocStore.Insert(ctx, "Shop_Orders", docstore.Document{"n": 1.0})
	require.NoError(t, err)
	_, err = services.DocStore.Insert(ctx, "Shop_Returns", docstore.Document{"n": 2.0})
	require.NoError(t, err)

	result, err := application.ReconcileOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Shop_Returns"}, result.Dropped)
}

func TestServe_EndToEnd(t *testing.T) {
	settings := testSettings(t)
	services, err := InitializeServices(context.Background(), settings)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := "http://" + ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, services, ln) }()

	post := func(path, body string) int {
		resp, err := http.Post(base+path, "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}
	get := func(path string) int {
		resp, err := http.Get(base + path)
		if err != nil {
			return 0
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	require.Equal(t, http.StatusCreated, post("/admin/services", `{
		"name": "Shop", "isActive": true,
		"entities": [{"name": "Orders", "isActive": true, "endpoints": [
			{"route": "orders", "verb": "GET", "isActive": true},
			{"route": "orders", "verb": "POST", "isActive": true}
		]}]
	}`))
	require.Equal(t, http.StatusCreated, post("/api/Shop/Orders/orders", `{"price": 1}`))
	require.Equal(t, http.StatusOK, get("/api/Shop/Orders/orders"))

	// Deactivate the service behind the server's back.
	record := services.Configs.RecordPath("Shop")
	require.NoError(t, os.WriteFile(record, []byte("name: Shop\nisActive: false\nentities:\n- name: Orders\n  isActive: true\n"), 0644))

	assert.Eventually(t, func() bool {
		return get("/api/Shop/Orders/orders") == http.StatusNotFound
	}, 5*time.Second, 20*time.Millisecond, "external edit becomes visible")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not return after cancellation")
	}
	assert.Equal(t, 0, services.Cache.Len(), "cache is cleared on shutdown")
}
