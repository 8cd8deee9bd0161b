package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces the environment overrides, e.g.
// VERGE_NOTIFY_TELEGRAM_BOT_TOKEN.
const EnvPrefix = "VERGE"

// secretKeys may come from the environment even when no file mentions them.
var secretKeys = []string{
	"notify.telegram.bot_token",
	"notify.telegram.chat_id",
	"fundamentals.api_key",
}

// Load reads path and its include chain, included files first so the
// including file wins, then applies environment overrides, defaults and
// validation.
func Load(path string) (*Config, error) {
	files, err := includeChain(path)
	if err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigType("yaml")
	for _, file := range files {
		part := viper.New()
		part.SetConfigFile(file)
		if err := part.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
		if err := v.MergeConfigMap(part.AllSettings()); err != nil {
			return nil, fmt.Errorf("merge config %s: %w", file, err)
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range secretKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	keys := make(keySet)
	markKeys("", v.AllSettings(), keys)
	cfg.applyDefaults(keys)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// includeChain flattens the include graph depth first.
func includeChain(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w := &includeWalker{done: make(map[string]bool)}
	if err := w.visit(abs); err != nil {
		return nil, err
	}
	return w.order, nil
}

type includeWalker struct {
	done  map[string]bool
	trail []string
	order []string
}

func (w *includeWalker) visit(path string) error {
	path = filepath.Clean(path)
	for _, p := range w.trail {
		if p == path {
			return fmt.Errorf("include cycle: %s -> %s", strings.Join(w.trail, " -> "), path)
		}
	}
	if w.done[path] {
		return nil
	}
	includes, err := readIncludes(path)
	if err != nil {
		return err
	}
	w.trail = append(w.trail, path)
	for _, inc := range includes {
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(filepath.Dir(path), inc)
		}
		if err := w.visit(inc); err != nil {
			return err
		}
	}
	w.trail = w.trail[:len(w.trail)-1]
	w.done[path] = true
	w.order = append(w.order, path)
	return nil
}

// readIncludes decodes only the top-level include list of a file.
func readIncludes(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var head struct {
		Include yaml.Node `yaml:"include"`
	}
	if err := yaml.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if head.Include.Kind == 0 {
		return nil, nil
	}
	var list []string
	if err := head.Include.Decode(&list); err != nil {
		return nil, fmt.Errorf("%s: include must be a list of paths", path)
	}
	out := list[:0]
	for _, item := range list {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out, nil
}

// markKeys records every leaf key present after merging, lists included.
func markKeys(prefix string, node any, dest keySet) {
	m, ok := node.(map[string]any)
	if !ok {
		dest.mark(prefix)
		return
	}
	for k, child := range m {
		key := strings.ToLower(strings.TrimSpace(k))
		if key == "" {
			continue
		}
		if prefix != "" {
			key = prefix + "." + key
		}
		markKeys(key, child, dest)
	}
}
