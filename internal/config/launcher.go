package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/aayushdutt/packkeeper/internal/core"
)

// PlatformConfig is the per-platform block of the launcher document
type PlatformConfig struct {
	ModpacksEnabled  *bool    `json:"modpacksEnabled,omitempty"`
	DisabledVersions []string `json:"disabledVersions,omitempty"`
}

// Launcher is the typed view of launcher.json
type Launcher struct {
	Platforms map[core.Platform]PlatformConfig `json:"platforms,omitempty"`
}

// Document is the launcher configuration, merged once at load and read-only
// afterwards. Lookups never fail; they fall back to the supplied default.
type Document struct {
	raw      []byte
	launcher Launcher
	logger   *slog.Logger
}

// LoadDocument reads path and merges override over it. A missing file is an
// empty document.
func LoadDocument(path string, override []byte, logger *slog.Logger) (*Document, error) {
	base, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading launcher config: %w", err)
	}
	return ParseDocument(base, override, logger), nil
}

// ParseDocument deep-merges override over base. Either side may be empty.
// A side that is not a JSON object is ignored with a warning.
func ParseDocument(base, override []byte, logger *slog.Logger) *Document {
	merged := mergeObjects(
		decodeObject(base, "base", logger),
		decodeObject(override, "override", logger),
	)

	raw, err := json.Marshal(merged)
	if err != nil {
		// Values came from json.Unmarshal, so this only fails on a bug.
		logger.Error("re-encoding launcher config", slog.Any("error", err))
		raw = []byte("{}")
	}

	d := &Document{raw: raw, logger: logger}
	if err := json.Unmarshal(raw, &d.launcher); err != nil {
		logger.Warn("launcher config does not match schema", slog.Any("error", err))
	}
	for p := range d.launcher.Platforms {
		if !p.Valid() {
			logger.Warn("unknown platform in launcher config", slog.String("platform", string(p)))
		}
	}
	return d
}

func decodeObject(data []byte, source string, logger *slog.Logger) map[string]any {
	if len(strings.TrimSpace(string(data))) == 0 {
		return map[string]any{}
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		logger.Warn("ignoring malformed launcher config",
			slog.String("source", source), slog.Any("error", err))
		return map[string]any{}
	}
	if obj == nil {
		obj = map[string]any{}
	}
	return obj
}

// mergeObjects copies src into dst. Nested objects merge recursively, anything
// else in src replaces what dst had.
func mergeObjects(dst, src map[string]any) map[string]any {
	for k, v := range src {
		srcObj, srcIsObj := v.(map[string]any)
		dstObj, dstIsObj := dst[k].(map[string]any)
		if srcIsObj && dstIsObj {
			dst[k] = mergeObjects(dstObj, srcObj)
			continue
		}
		dst[k] = v
	}
	return dst
}

// Launcher returns the typed view
func (d *Document) Launcher() Launcher {
	return d.launcher
}

// Raw returns the merged document
func (d *Document) Raw() []byte {
	return d.raw
}

// Lookup returns the raw JSON at a dotted key
func (d *Document) Lookup(key string) (string, bool) {
	path, ok := d.path(key)
	if !ok {
		return "", false
	}
	res := gjson.GetBytes(d.raw, path)
	return res.Raw, res.Exists()
}

func (d *Document) path(key string) (string, bool) {
	segments := strings.Split(key, ".")
	for i, seg := range segments {
		if seg == "" {
			d.logger.Warn("malformed config key", slog.String("key", key))
			return "", false
		}
		segments[i] = gjson.Escape(seg)
	}
	return strings.Join(segments, "."), true
}

// Get reads the value at a dotted key such as "platforms.modrinth.modpacksEnabled".
// Malformed keys, missing keys and values of the wrong type return def.
func Get[T any](d *Document, key string, def T) T {
	path, ok := d.path(key)
	if !ok {
		return def
	}
	res := gjson.GetBytes(d.raw, path)
	if !res.Exists() {
		d.logger.Debug("config key not set", slog.String("key", key))
		return def
	}

	out, ok := convert(res, def)
	if !ok {
		d.logger.Warn("config value has wrong type",
			slog.String("key", key),
			slog.String("value", res.Raw),
			slog.String("want", fmt.Sprintf("%T", def)))
		return def
	}
	return out
}

func convert[T any](res gjson.Result, def T) (T, bool) {
	var v any
	switch any(def).(type) {
	case bool:
		if res.Type != gjson.True && res.Type != gjson.False {
			return def, false
		}
		v = res.Bool()
	case string:
		if res.Type != gjson.String {
			return def, false
		}
		v = res.String()
	case int:
		if res.Type != gjson.Number {
			return def, false
		}
		v = int(res.Int())
	case int64:
		if res.Type != gjson.Number {
			return def, false
		}
		v = res.Int()
	case float64:
		if res.Type != gjson.Number {
			return def, false
		}
		v = res.Float()
	case []string:
		if !res.IsArray() {
			return def, false
		}
		items := res.Array()
		strs := make([]string, 0, len(items))
		for _, item := range items {
			if item.Type != gjson.String {
				return def, false
			}
			strs = append(strs, item.String())
		}
		v = strs
	default:
		var out T
		if err := json.Unmarshal([]byte(res.Raw), &out); err != nil {
			return def, false
		}
		return out, true
	}
	return v.(T), true
}

// Settings exposes the update-check knobs from the user config and the
// launcher document
type Settings struct {
	cfg *Config
	doc *Document
}

func NewSettings(cfg *Config, doc *Document) *Settings {
	return &Settings{cfg: cfg, doc: doc}
}

// PlatformEnabled defaults to true when the launcher document is silent
func (s *Settings) PlatformEnabled(p core.Platform) bool {
	return Get(s.doc, "platforms."+string(p)+".modpacksEnabled", true)
}

func (s *Settings) DisabledVersions(p core.Platform) []string {
	return Get[[]string](s.doc, "platforms."+string(p)+".disabledVersions", nil)
}

func (s *Settings) IncludePrerelease() bool {
	return s.cfg.ShowPrereleaseUpdates
}
