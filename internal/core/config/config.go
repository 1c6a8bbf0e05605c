package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RefreshCfg struct {
	Enabled       bool
	Topic         string
	Brokers       string
	GroupID       string
	TLS           bool
	SASLUser      string
	SASLPassword  string
	SASLMechanism string
	// ClickTopic receives marker click events when set.
	ClickTopic string
}

type LogCfg struct {
	Level   string
	Console bool
	SampleN int
}

type KeysCfg struct {
	Google   string
	MapQuest string
	MapBox   string
}

type Config struct {
	Addr           string
	Keys           KeysCfg
	Log            LogCfg
	MetricsEnabled bool
	MapsFile       string
	TemplatesDir   string
	GSheetsBaseURL string
	SheetProxy     string
	RedisAddr      string
	CacheTTL       time.Duration
	CacheLRUSize   int
	CacheOpTimeout time.Duration
	FetchTimeout   time.Duration
	RefreshEvery   time.Duration
	H3Res          int
	Refresh        RefreshCfg
	Maps           []MapDef
}

// MapDef declares one served map.
type MapDef struct {
	Name          string         `yaml:"name"`
	Source        string         `yaml:"source"`
	Key           string         `yaml:"key"`
	Sheet         string         `yaml:"sheet"`
	Provider      string         `yaml:"provider"`
	Container     string         `yaml:"container"`
	Fields        []string       `yaml:"fields"`
	TitleColumn   string         `yaml:"title_column"`
	PopupTemplate string         `yaml:"popup_template"`
	MarkerOptions map[string]any `yaml:"marker_options"`
	MapOptions    map[string]any `yaml:"map_options"`
	LayerOptions  map[string]any `yaml:"layer_options"`
	Accumulate    bool           `yaml:"accumulate"`
	Proxy         string         `yaml:"proxy"`
	// SimpleSheet defaults to true: only the first table is fetched unless a
	// sheet is named.
	SimpleSheet *bool `yaml:"simple_sheet"`
}

func (d MapDef) Simple() bool { return d.SimpleSheet == nil || *d.SimpleSheet }

type mapsFile struct {
	Maps []MapDef `yaml:"maps"`
}

var (
	ErrNoMaps       = errors.New("no maps configured (set MAPS_FILE or SHEET_KEY)")
	ErrDuplicateMap = errors.New("duplicate map name")
	ErrInvalidMap   = errors.New("invalid map definition")
)

// FromEnv reads the service settings. Map definitions are left to Load.
func FromEnv() Config {
	return Config{
		Addr: getenv("ADDR", ":8090"),
		Keys: KeysCfg{
			Google:   getenv("GOOGLE_MAPS_API_KEY", ""),
			MapQuest: getenv("MAPQUEST_API_KEY", ""),
			MapBox:   getenv("MAPBOX_ACCESS_TOKEN", ""),
		},
		Log: LogCfg{
			Level:   getenv("LOG_LEVEL", "info"),
			Console: getbool("LOG_CONSOLE", false),
			SampleN: getint("LOG_SAMPLE_N", 0),
		},
		MetricsEnabled: getbool("METRICS_ENABLED", true),
		MapsFile:       getenv("MAPS_FILE", ""),
		TemplatesDir:   getenv("TEMPLATES_DIR", ""),
		GSheetsBaseURL: getenv("GSHEETS_BASE_URL", "https://docs.google.com/spreadsheets/d"),
		SheetProxy:     getenv("SHEET_PROXY", ""),
		RedisAddr:      getenv("REDIS_ADDR", ""),
		CacheTTL:       getduration("CACHE_TTL", 5*time.Minute),
		CacheLRUSize:   getint("CACHE_LRU_SIZE", 128),
		CacheOpTimeout: getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),
		FetchTimeout:   getduration("FETCH_TIMEOUT", 15*time.Second),
		RefreshEvery:   getduration("REFRESH_EVERY", 0),
		H3Res:          clampRes(getint("H3_RES", 8)),
		Refresh: RefreshCfg{
			Enabled: getbool("REFRESH_ENABLED", false),
			Topic:   getenv("KAFKA_TOPIC", "sheet-updates"),
			Brokers: getenv("KAFKA_BROKERS", "localhost:9092"),
			GroupID: getenv("KAFKA_GROUP_ID", "mapsheet-refresh"),

			TLS:           getbool("KAFKA_TLS", false),
			SASLUser:      getenv("KAFKA_SASL_USER", ""),
			SASLPassword:  getenv("KAFKA_SASL_PASSWORD", ""),
			SASLMechanism: getenv("KAFKA_SASL_MECHANISM", "PLAIN"),
			ClickTopic:    getenv("CLICK_EVENTS_TOPIC", ""),
		},
	}
}

// Load reads the environment and the map definitions, either from MAPS_FILE
// or from the single-map SHEET_* variables.
func Load() (Config, error) {
	cfg := FromEnv()
	var (
		defs []MapDef
		err  error
	)
	if cfg.MapsFile != "" {
		defs, err = LoadMapsFile(cfg.MapsFile)
		if err != nil {
			return Config{}, err
		}
	} else if def, ok := mapFromEnv(); ok {
		defs = []MapDef{def}
	}
	if err := validateMaps(defs); err != nil {
		return Config{}, err
	}
	for i := range defs {
		if defs[i].Proxy == "" {
			defs[i].Proxy = cfg.SheetProxy
		}
	}
	cfg.Maps = defs
	return cfg, nil
}

func LoadMapsFile(path string) ([]MapDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read maps file %s: %w", path, err)
	}
	return ParseMaps(data)
}

func ParseMaps(data []byte) ([]MapDef, error) {
	var f mapsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse maps: %w", err)
	}
	for i := range f.Maps {
		applyMapDefaults(&f.Maps[i])
	}
	return f.Maps, nil
}

func mapFromEnv() (MapDef, bool) {
	key := getenv("SHEET_KEY", "")
	if key == "" {
		return MapDef{}, false
	}
	d := MapDef{
		Name:        getenv("MAP_NAME", "default"),
		Source:      getenv("SHEET_SOURCE", ""),
		Key:         key,
		Sheet:       getenv("SHEET_NAME", ""),
		Provider:    getenv("PROVIDER", ""),
		Fields:      splitList(getenv("FIELDS", "")),
		TitleColumn: getenv("TITLE_COLUMN", ""),
	}
	applyMapDefaults(&d)
	return d, true
}

func applyMapDefaults(d *MapDef) {
	d.Name = strings.TrimSpace(d.Name)
	if d.Source == "" {
		d.Source = "gsheets"
	}
	d.Source = strings.ToLower(d.Source)
	if d.Provider == "" {
		d.Provider = "google"
	}
	if d.Container == "" {
		d.Container = "map"
	}
}

func validateMaps(defs []MapDef) error {
	if len(defs) == 0 {
		return ErrNoMaps
	}
	seen := make(map[string]struct{}, len(defs))
	for i, d := range defs {
		switch {
		case d.Name == "":
			return fmt.Errorf("%w: map %d has no name", ErrInvalidMap, i)
		case d.Key == "":
			return fmt.Errorf("%w: map %q has no key", ErrInvalidMap, d.Name)
		}
		switch d.Source {
		case "gsheets", "xlsx", "csv":
		default:
			return fmt.Errorf("%w: map %q has unknown source %q", ErrInvalidMap, d.Name, d.Source)
		}
		if _, ok := seen[d.Name]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateMap, d.Name)
		}
		seen[d.Name] = struct{}{}
	}
	return nil
}

func clampRes(res int) int {
	if res < 0 {
		return 0
	}
	if res > 15 {
		return 15
	}
	return res
}

func splitList(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
