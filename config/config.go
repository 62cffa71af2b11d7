package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"github.com/viant/ayahvec/arabic"
	"github.com/viant/ayahvec/scan"
)

// EnvPrefix prefixes environment overrides, e.g. AYAHVEC_SEARCH_K.
const EnvPrefix = "AYAHVEC"

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Store    StoreConfig    `mapstructure:"store"`
	Generate GenerateConfig `mapstructure:"generate"`
	Embed    EmbedConfig    `mapstructure:"embed"`
	Arabic   ArabicConfig   `mapstructure:"arabic"`
	Scan     ScanConfig     `mapstructure:"scan"`
	Search   SearchConfig   `mapstructure:"search"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig locates the verse corpus.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
	// Tables are the script-variant verse tables scanned and searched.
	Tables      []string `mapstructure:"tables"`
	TafsirTable string   `mapstructure:"tafsir_table"`
}

// StoreConfig names the binary embedding store file.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// GenerateConfig tunes embedding generation.
type GenerateConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	BatchSize   int `mapstructure:"batch_size"`
	// RatePerSecond caps embedding calls; 0 disables throttling.
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	Burst         int     `mapstructure:"burst"`
	CacheTable    string  `mapstructure:"cache_table"`
	MinLength     int     `mapstructure:"min_length"`
}

// EmbedConfig points at an OpenAI-compatible embeddings endpoint.
type EmbedConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
	APIKey  string `mapstructure:"api_key"`
}

// ArabicConfig lists code points or ranges ("064B-065F", "U+0670").
type ArabicConfig struct {
	Diacritics []string `mapstructure:"diacritics"`
	StopMarks  []string `mapstructure:"stop_marks"`
}

// PatternConfig is one named merge candidate; Left and Right are RE2.
type PatternConfig struct {
	Name  string `mapstructure:"name"`
	Left  string `mapstructure:"left"`
	Right string `mapstructure:"right"`
}

// ScanConfig drives the anomaly scanner.
type ScanConfig struct {
	Patterns     []PatternConfig `mapstructure:"patterns"`
	Markers      []string        `mapstructure:"markers"`
	OnlyMerged   bool            `mapstructure:"only_merged"`
	ContextRunes int             `mapstructure:"context_runes"`
}

// SearchConfig holds similarity search defaults.
type SearchConfig struct {
	K int `mapstructure:"k"`
}

// LogConfig selects the slog level and handler (text or json).
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.dsn", "assets/db/Quran.db")
	v.SetDefault("database.tables", []string{"al_quran_indopak_quran", "al_quran_utsmani_quran"})
	v.SetDefault("database.tafsir_table", "tafseer")
	v.SetDefault("store.path", "tafseer_embeddings.bin")
	v.SetDefault("generate.concurrency", 4)
	v.SetDefault("generate.batch_size", 64)
	v.SetDefault("generate.rate_per_second", 0.0)
	v.SetDefault("generate.burst", 1)
	v.SetDefault("generate.cache_table", "embeddings")
	v.SetDefault("generate.min_length", 20)
	v.SetDefault("embed.base_url", "http://localhost:11434/v1")
	v.SetDefault("embed.model", "all-MiniLM-L6-v2")
	v.SetDefault("embed.api_key", "")
	v.SetDefault("arabic.diacritics", strings.Split(arabic.Diacritics.String(), ","))
	v.SetDefault("arabic.stop_marks", strings.Split(arabic.StopMarks.String(), ","))
	patterns := make([]map[string]interface{}, 0, len(scan.DefaultMergePatterns))
	for _, p := range scan.DefaultMergePatterns {
		patterns = append(patterns, map[string]interface{}{"name": p.Name, "left": p.Left, "right": p.Right})
	}
	v.SetDefault("scan.patterns", patterns)
	v.SetDefault("scan.markers", scan.DefaultMarkers)
	v.SetDefault("scan.only_merged", false)
	v.SetDefault("scan.context_runes", scan.DefaultContextRunes)
	v.SetDefault("search.k", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration from defaults, an optional file and the
// environment, in increasing order of precedence. An empty path skips the
// file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return &cfg, nil
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if c.Database.DSN == "" {
		warnings = append(warnings, "database dsn is empty")
	}
	if c.Generate.Concurrency <= 0 {
		warnings = append(warnings, fmt.Sprintf("generate concurrency %d is not positive, the default is used", c.Generate.Concurrency))
	}
	if c.Generate.RatePerSecond < 0 {
		warnings = append(warnings, fmt.Sprintf("generate rate_per_second %.2f is negative", c.Generate.RatePerSecond))
	}
	if c.Embed.BaseURL == "" {
		warnings = append(warnings, "embed base_url is empty, build cannot reach a model")
	}
	if c.Search.K <= 0 {
		warnings = append(warnings, fmt.Sprintf("search k %d returns no matches", c.Search.K))
	}
	if _, _, err := c.Charsets(); err != nil {
		warnings = append(warnings, err.Error())
	}
	if len(c.Scan.Patterns) == 0 {
		warnings = append(warnings, "no merge patterns configured")
	}
	for i, p := range c.Scan.Patterns {
		if p.Left == "" || p.Right == "" {
			warnings = append(warnings, fmt.Sprintf("merge pattern %d (%q) needs both left and right", i, p.Name))
		}
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		warnings = append(warnings, fmt.Sprintf("unknown log level %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		warnings = append(warnings, fmt.Sprintf("unknown log format %q", c.Log.Format))
	}
	return warnings
}

// Charsets parses the diacritic and stop-mark classes. Empty lists fall back
// to the package defaults; overlapping classes are an error.
func (c *Config) Charsets() (diacritics, stops *arabic.Charset, err error) {
	diacritics, stops = arabic.Diacritics, arabic.StopMarks
	if len(c.Arabic.Diacritics) > 0 {
		if diacritics, err = arabic.ParseCharset(c.Arabic.Diacritics); err != nil {
			return nil, nil, fmt.Errorf("arabic.diacritics: %w", err)
		}
	}
	if len(c.Arabic.StopMarks) > 0 {
		if stops, err = arabic.ParseCharset(c.Arabic.StopMarks); err != nil {
			return nil, nil, fmt.Errorf("arabic.stop_marks: %w", err)
		}
	}
	if diacritics.Overlaps(stops) {
		return nil, nil, fmt.Errorf("arabic.stop_marks %s overlap arabic.diacritics %s", stops, diacritics)
	}
	return diacritics, stops, nil
}

// Tokenizer builds the tokenizer for the configured charsets.
func (c *Config) Tokenizer() (*arabic.Tokenizer, error) {
	diacritics, stops, err := c.Charsets()
	if err != nil {
		return nil, err
	}
	return arabic.NewTokenizer(arabic.NewNormalizer(diacritics), stops)
}

// MergePatterns converts the configured patterns.
func (c *Config) MergePatterns() []scan.MergePattern {
	out := make([]scan.MergePattern, len(c.Scan.Patterns))
	for i, p := range c.Scan.Patterns {
		out[i] = scan.MergePattern{Name: p.Name, Left: p.Left, Right: p.Right}
	}
	return out
}

// Scanner builds a scanner from the scan and arabic sections.
func (c *Config) Scanner() (*scan.Scanner, error) {
	tokenizer, err := c.Tokenizer()
	if err != nil {
		return nil, err
	}
	s, err := scan.NewScanner(c.MergePatterns(), c.Scan.Markers, tokenizer)
	if err != nil {
		return nil, err
	}
	s.OnlyMerged = c.Scan.OnlyMerged
	if c.Scan.ContextRunes > 0 {
		s.ContextRunes = c.Scan.ContextRunes
	}
	return s, nil
}
