package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const reloadDebounce = 200 * time.Millisecond

// Watch hot-reloads path through viper's file watcher until ctx is done.
// Each successful reload replaces the current config and runs the RegisterOnReload callbacks;
// a file that fails to load keeps the previous config in place.
func Watch(ctx context.Context, path string) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		slog.Warn("config watch initial read failed", "path", path, "error", err)
		return
	}

	reload := func() {
		cfg, err := Load(path)
		if err != nil {
			slog.Warn("config hot-reload load failed", "path", path, "error", err)
			return
		}
		if err := cfg.Validate(); err != nil {
			slog.Warn("config hot-reload rejected", "path", path, "error", err)
			return
		}
		Set(cfg)
		notifyReload(cfg)
		slog.Info("config hot-reloaded", "path", path, "actions", len(cfg.Proxy.Actions))
	}

	var (
		mu       sync.Mutex
		debounce *time.Timer
	)
	v.OnConfigChange(func(e fsnotify.Event) {
		if !isReloadEvent(e, path) {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if debounce != nil {
			debounce.Stop()
		}
		debounce = time.AfterFunc(reloadDebounce, reload)
	})
	v.WatchConfig()

	<-ctx.Done()
	mu.Lock()
	if debounce != nil {
		debounce.Stop()
	}
	mu.Unlock()
}

func isReloadEvent(e fsnotify.Event, path string) bool {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
		return false
	}
	return filepath.Clean(e.Name) == filepath.Clean(path)
}
