package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"verge/internal/logger"
)

// WatchLogLevel applies app.log_level edits to the running process. Other
// settings need a restart. The returned function stops reacting to changes.
func WatchLogLevel(path string) (func(), error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config failed: %w", err)
	}
	stopped := make(chan struct{})
	v.OnConfigChange(func(evt fsnotify.Event) {
		select {
		case <-stopped:
			return
		default:
		}
		if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) {
			return
		}
		level := strings.TrimSpace(v.GetString("app.log_level"))
		if level == "" || level == logger.Level() {
			return
		}
		if !logger.ValidLevel(level) {
			logger.Warnf("config reload (%s): ignoring invalid log level %q", evt.Name, level)
			return
		}
		logger.SetLevel(level)
		logger.Infof("config reload (%s): log level now %s", evt.Name, logger.Level())
	})
	v.WatchConfig()
	var once sync.Once
	return func() { once.Do(func() { close(stopped) }) }, nil
}
