package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/aussie-warriors/awbot/internal/observability"
)

// Config holds the deployment shape of the bot. Credentials and runtime
// toggles live in the settings document instead.
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	Discord       DiscordConfig       `yaml:"discord"`
	Channels      ChannelsConfig      `yaml:"channels"`
	Roles         RolesConfig         `yaml:"roles"`
	Clans         ClansConfig         `yaml:"clans"`
	Clash         ClashConfig         `yaml:"clash"`
	Schedules     SchedulesConfig     `yaml:"schedules"`
	SettingsPath  string              `yaml:"settings_path"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// DiscordConfig holds the gateway settings.
type DiscordConfig struct {
	Token    string   `yaml:"token"`
	GuildID  string   `yaml:"guild_id"`
	OwnerIDs []string `yaml:"owner_ids"`
	Prefix   string   `yaml:"prefix"`
}

// ChannelsConfig names the channels the bot posts into.
type ChannelsConfig struct {
	Info        string `yaml:"info"`
	LeaderNotes string `yaml:"leader_notes"`
	Donations   string `yaml:"donations"`
	Operator    string `yaml:"operator"`
}

// RolesConfig names the roles the bot manages.
type RolesConfig struct {
	War string `yaml:"war"`
}

// Clan is a clan the bot tracks for claims and donations.
type Clan struct {
	Tag   string `yaml:"tag"`
	Name  string `yaml:"name"`
	Alias string `yaml:"alias"`
}

// ClansConfig holds the home clan and every tracked clan.
type ClansConfig struct {
	Home    string `yaml:"home"`
	Tracked []Clan `yaml:"tracked"`
}

// ByAlias finds a tracked clan by alias, tag or name, case-insensitively.
func (c ClansConfig) ByAlias(key string) (Clan, bool) {
	key = strings.TrimSpace(key)
	for _, clan := range c.Tracked {
		if strings.EqualFold(clan.Alias, key) || strings.EqualFold(clan.Tag, key) || strings.EqualFold(clan.Name, key) {
			return clan, true
		}
	}
	return Clan{}, false
}

// Names returns the display names of the tracked clans.
func (c ClansConfig) Names() []string {
	names := make([]string, 0, len(c.Tracked))
	for _, clan := range c.Tracked {
		names = append(names, clan.Name)
	}
	return names
}

// ClashConfig holds the game API settings.
type ClashConfig struct {
	BaseURL           string  `yaml:"base_url"`
	DeveloperURL      string  `yaml:"developer_url"`
	IPLookupURL       string  `yaml:"ip_lookup_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	KeyName           string  `yaml:"key_name"`
}

// SchedulesConfig holds a duration ("15m") or cron expression per task.
type SchedulesConfig struct {
	WarRole   string `yaml:"war_role"`
	WarStats  string `yaml:"war_stats"`
	Donations string `yaml:"donations"`
	Averages  string `yaml:"averages"`
	Warnings  string `yaml:"warnings"`
	Pings     string `yaml:"pings"`
}

// ObservabilityConfig holds configuration for observability components.
type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level"`
	LogFormat      string `yaml:"log_format"`
	MetricsAddress string `yaml:"metrics_address"`
	Environment    string `yaml:"environment"`
}

// LoadConfig loads the configuration from a YAML file. A .env file next to
// the working directory is loaded first when present.
func LoadConfig(filename string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		return loadConfigFromEnv()
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(&cfg)
	cfg.applyDefaults()
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("DISCORD_TOKEN"); v != "" {
		cfg.Discord.Token = v
	}
	if v := os.Getenv("DISCORD_GUILD_ID"); v != "" {
		cfg.Discord.GuildID = v
	}
	if v := os.Getenv("DISCORD_OWNER_IDS"); v != "" {
		cfg.Discord.OwnerIDs = splitList(v)
	}
	if v := os.Getenv("SETTINGS_PATH"); v != "" {
		cfg.SettingsPath = v
	}
	if v := os.Getenv("CLASH_BASE_URL"); v != "" {
		cfg.Clash.BaseURL = v
	}
	if v := os.Getenv("CLASH_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Clash.RequestsPerSecond = f
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
	if v := os.Getenv("METRICS_ADDRESS"); v != "" {
		cfg.Observability.MetricsAddress = v
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Observability.Environment = v
	}
}

// loadConfigFromEnv loads the configuration from environment variables only.
func loadConfigFromEnv() (*Config, error) {
	var cfg Config
	applyEnvOverrides(&cfg)

	cfg.Clans.Home = os.Getenv("CLAN_HOME_TAG")
	if cfg.Clans.Home == "" {
		return nil, fmt.Errorf("CLAN_HOME_TAG environment variable not set")
	}
	cfg.Channels.Info = os.Getenv("CHANNEL_INFO")
	cfg.Channels.LeaderNotes = os.Getenv("CHANNEL_LEADER_NOTES")
	cfg.Channels.Donations = os.Getenv("CHANNEL_DONATIONS")
	cfg.Channels.Operator = os.Getenv("CHANNEL_OPERATOR")
	cfg.Roles.War = os.Getenv("ROLE_WAR")

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Discord.Prefix == "" {
		c.Discord.Prefix = "?"
	}
	if c.SettingsPath == "" {
		c.SettingsPath = "creds.json"
	}
	if c.Clash.BaseURL == "" {
		c.Clash.BaseURL = "https://api.clashofclans.com/v1"
	}
	if c.Clash.DeveloperURL == "" {
		c.Clash.DeveloperURL = "https://developer.clashofclans.com"
	}
	if c.Clash.IPLookupURL == "" {
		c.Clash.IPLookupURL = "https://api.ipify.org"
	}
	if c.Clash.RequestsPerSecond <= 0 {
		c.Clash.RequestsPerSecond = 10
	}
	if c.Clash.KeyName == "" {
		c.Clash.KeyName = "awbot"
	}
	if c.Channels.Operator == "" {
		c.Channels.Operator = c.Channels.Info
	}
	if len(c.Clans.Tracked) == 0 && c.Clans.Home != "" {
		c.Clans.Tracked = []Clan{{Tag: c.Clans.Home, Name: c.Clans.Home, Alias: "home"}}
	}

	s := &c.Schedules
	if s.WarRole == "" {
		s.WarRole = "5m"
	}
	if s.WarStats == "" {
		s.WarStats = "30m"
	}
	if s.Donations == "" {
		s.Donations = "1h"
	}
	if s.Averages == "" {
		s.Averages = "0 0 * * *"
	}
	if s.Warnings == "" {
		s.Warnings = "10m"
	}
	if s.Pings == "" {
		s.Pings = "0 7 * * 3"
	}

	if c.Observability.LogLevel == "" {
		c.Observability.LogLevel = "info"
	}
	if c.Observability.LogFormat == "" {
		c.Observability.LogFormat = "json"
	}
}

// ToObsOptions maps the config onto observability options.
func ToObsOptions(cfg *Config) observability.Options {
	return observability.Options{
		ServiceName: "awbot",
		Environment: cfg.Observability.Environment,
		LogLevel:    cfg.Observability.LogLevel,
		LogFormat:   cfg.Observability.LogFormat,
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
