package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Rule set and universe identifiers used by analysis tasks.
const (
	RuleSetSwing    = "swing"
	RuleSetMomentum = "momentum"

	UniverseN500 = "n500"
	UniverseFnO  = "fno"

	ExcelIndividual = "individual"
	ExcelSingle     = "single"
)

// Task is one named analysis: a rule set applied to a stock universe.
type Task struct {
	Name     string `yaml:"name"`
	RuleSet  string `yaml:"rule_set"`
	Universe string `yaml:"universe"`
}

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		HistoryDays          int    `yaml:"history_days"`
		SymbolSuffix         string `yaml:"symbol_suffix"`
		Nifty500URL          string `yaml:"nifty500_tickers_url"`
		FnOURL               string `yaml:"fno_tickers_url"`
		FetchTickers         bool   `yaml:"fetch_tickers"`
		DeliveryURL          string `yaml:"delivery_url"`
		DeliveryLookbackDays int    `yaml:"delivery_lookback_days"`
	} `yaml:"data_source"`
	FilePaths struct {
		N500TickersFile string `yaml:"n500_tickers_file"`
		FnOTickersFile  string `yaml:"fno_tickers_file"`
		OutputDir       string `yaml:"output_dir"`
	} `yaml:"file_paths"`
	Export struct {
		ExcelFormat string `yaml:"excel_format"`
	} `yaml:"export"`
	Schedule struct {
		AnalysisCron string `yaml:"analysis_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Workers int    `yaml:"workers"`
	Proxy   string `yaml:"proxy"`

	SwingRules    RuleParams `yaml:"swing_rules"`
	MomentumRules RuleParams `yaml:"momentum_rules"`
	Tasks         []Task     `yaml:"tasks"`

	// Populated by Validate.
	Swing    SwingRules    `yaml:"-"`
	Momentum MomentumRules `yaml:"-"`
}

// DefaultTasks mirrors the four screens run when the config lists none.
var DefaultTasks = []Task{
	{Name: "N500_SWING", RuleSet: RuleSetSwing, Universe: UniverseN500},
	{Name: "N500_MOMENTUM", RuleSet: RuleSetMomentum, Universe: UniverseN500},
	{Name: "FNO_SWING", RuleSet: RuleSetSwing, Universe: UniverseFnO},
	{Name: "FNO_MOMENTUM", RuleSet: RuleSetMomentum, Universe: UniverseFnO},
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("CRON_ANALYSIS"); v != "" {
		cfg.Schedule.AnalysisCron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		cfg.FilePaths.OutputDir = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("SCREENER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Workers = n
		}
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.DataSource.HistoryDays == 0 {
		cfg.DataSource.HistoryDays = 400
	}
	if cfg.DataSource.SymbolSuffix == "" {
		cfg.DataSource.SymbolSuffix = ".NS"
	}
	if cfg.DataSource.Nifty500URL == "" {
		cfg.DataSource.Nifty500URL = "https://archives.nseindia.com/content/indices/ind_nifty500list.csv"
	}
	if cfg.DataSource.FnOURL == "" {
		cfg.DataSource.FnOURL = "https://assets.upstox.com/market-quote/instruments/exchange/complete.json.gz"
	}
	if cfg.DataSource.DeliveryURL == "" {
		cfg.DataSource.DeliveryURL = "https://nsearchives.nseindia.com/products/content/sec_bhavdata_full_%s.csv"
	}
	if cfg.DataSource.DeliveryLookbackDays == 0 {
		cfg.DataSource.DeliveryLookbackDays = 7
	}
	if cfg.FilePaths.N500TickersFile == "" {
		cfg.FilePaths.N500TickersFile = "data/nifty500_tickers.csv"
	}
	if cfg.FilePaths.FnOTickersFile == "" {
		cfg.FilePaths.FnOTickersFile = "data/fno_tickers.csv"
	}
	if cfg.FilePaths.OutputDir == "" {
		cfg.FilePaths.OutputDir = "reports"
	}
	if cfg.Export.ExcelFormat == "" {
		cfg.Export.ExcelFormat = ExcelIndividual
	}
	if cfg.Schedule.AnalysisCron == "" {
		cfg.Schedule.AnalysisCron = "0 30 16 * * 1-5"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/signal_engine.db"
	}
	if cfg.Workers == 0 {
		cfg.Workers = 4
	}
	if len(cfg.Tasks) == 0 {
		cfg.Tasks = append([]Task(nil), DefaultTasks...)
	}
}

// Validate checks required fields and builds the typed rule parameters.
func (c *Config) Validate() error {
	swing, err := ParseSwingRules(c.SwingRules)
	if err != nil {
		return err
	}
	momentum, err := ParseMomentumRules(c.MomentumRules)
	if err != nil {
		return err
	}
	c.Swing, c.Momentum = swing, momentum

	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive")
	}
	if c.DataSource.HistoryDays < 252 {
		return fmt.Errorf("data_source.history_days must be at least 252")
	}
	switch c.Export.ExcelFormat {
	case ExcelIndividual, ExcelSingle:
	default:
		return fmt.Errorf("export.excel_format must be %q or %q", ExcelIndividual, ExcelSingle)
	}

	seen := make(map[string]bool, len(c.Tasks))
	for _, t := range c.Tasks {
		if t.Name == "" {
			return fmt.Errorf("tasks: name is required")
		}
		if seen[t.Name] {
			return fmt.Errorf("tasks: duplicate name %q", t.Name)
		}
		seen[t.Name] = true
		if t.RuleSet != RuleSetSwing && t.RuleSet != RuleSetMomentum {
			return fmt.Errorf("tasks.%s: unknown rule_set %q", t.Name, t.RuleSet)
		}
		if t.Universe != UniverseN500 && t.Universe != UniverseFnO {
			return fmt.Errorf("tasks.%s: unknown universe %q", t.Name, t.Universe)
		}
	}
	return nil
}

// TaskByName returns the configured task with the given name.
func (c *Config) TaskByName(name string) (Task, bool) {
	for _, t := range c.Tasks {
		if t.Name == name {
			return t, true
		}
	}
	return Task{}, false
}

// TelegramEnabled reports whether notifications can be sent.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
