package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Retention RetentionConfig `yaml:"retention"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Games     []GameConfig    `yaml:"games"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxConnections  int           `yaml:"max_connections"`
	MinConnections  int           `yaml:"min_connections"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
}

// ConnectionString returns the PostgreSQL connection string
func (c *PostgresConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslMode,
	)
}

// RedisConfig holds Redis connection configuration for the recent-feed cache
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	FeedSize     int           `yaml:"feed_size"`
	Enabled      bool          `yaml:"enabled"`
}

// KafkaConfig holds Kafka connection configuration for the cabinet ingest path
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
	Enabled bool     `yaml:"enabled"`
}

// RetentionConfig holds retention trim worker configuration
type RetentionConfig struct {
	Interval    time.Duration `yaml:"interval"`
	KeepPerGame int           `yaml:"keep_per_game"`
	Enabled     bool          `yaml:"enabled"`
}

// LedgerConfig holds score listing configuration
type LedgerConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

// GameConfig is a catalog seed entry. The score ceiling is the static
// anti-cheat bound for the game.
type GameConfig struct {
	Slug         string `yaml:"slug"`
	Name         string `yaml:"name"`
	Year         int    `yaml:"year"`
	Developer    string `yaml:"developer"`
	Genre        string `yaml:"genre"`
	Description  string `yaml:"description"`
	ScoreCeiling int64  `yaml:"score_ceiling"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 5 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 120 * time.Second
	}

	// PostgreSQL defaults
	if c.Postgres.Host == "" {
		c.Postgres.Host = "localhost"
	}
	if c.Postgres.Port == 0 {
		c.Postgres.Port = 5432
	}
	if c.Postgres.MaxConnections == 0 {
		c.Postgres.MaxConnections = 50
	}
	if c.Postgres.MinConnections == 0 {
		c.Postgres.MinConnections = 5
	}
	if c.Postgres.MaxConnLifetime == 0 {
		c.Postgres.MaxConnLifetime = 1 * time.Hour
	}
	if c.Postgres.MaxConnIdleTime == 0 {
		c.Postgres.MaxConnIdleTime = 30 * time.Minute
	}

	// Redis defaults
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 100
	}
	if c.Redis.MinIdleConns == 0 {
		c.Redis.MinIdleConns = 10
	}
	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = 5 * time.Second
	}
	if c.Redis.ReadTimeout == 0 {
		c.Redis.ReadTimeout = 3 * time.Second
	}
	if c.Redis.WriteTimeout == 0 {
		c.Redis.WriteTimeout = 3 * time.Second
	}
	if c.Redis.FeedSize == 0 {
		c.Redis.FeedSize = 50
	}

	// Kafka defaults
	if len(c.Kafka.Brokers) == 0 {
		c.Kafka.Brokers = []string{"localhost:9092"}
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "arcade-scores"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "highscore-ledger"
	}

	// Retention defaults
	if c.Retention.Interval == 0 {
		c.Retention.Interval = 24 * time.Hour
	}
	if c.Retention.KeepPerGame == 0 {
		c.Retention.KeepPerGame = 100
	}

	// Ledger defaults
	if c.Ledger.DefaultLimit == 0 {
		c.Ledger.DefaultLimit = 50
	}
	if c.Ledger.MaxLimit == 0 {
		c.Ledger.MaxLimit = 100
	}

	if len(c.Games) == 0 {
		c.Games = DefaultGames()
	}
}

// DefaultConfig returns a configuration with all defaults
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// DefaultGames returns the seed catalog of supported arcade games with
// their anti-cheat score ceilings.
func DefaultGames() []GameConfig {
	return []GameConfig{
		{
			Slug:         "contra",
			Name:         "Contra",
			Year:         1987,
			Developer:    "Konami",
			Genre:        "Run and Gun",
			Description:  "Classic side-scrolling shooter with the famous Konami Code.",
			ScoreCeiling: 10000000,
		},
		{
			Slug:         "pacman",
			Name:         "Pac-Man",
			Year:         1980,
			Developer:    "Namco",
			Genre:        "Maze",
			Description:  "The legendary dot-eating arcade game that started it all.",
			ScoreCeiling: 5000000,
		},
		{
			Slug:         "galaga",
			Name:         "Galaga",
			Year:         1981,
			Developer:    "Namco",
			Genre:        "Shoot em up",
			Description:  "Space shooter with challenging enemy formations and bonus stages.",
			ScoreCeiling: 3000000,
		},
		{
			Slug:         "donkey-kong",
			Name:         "Donkey Kong",
			Year:         1981,
			Developer:    "Nintendo",
			Genre:        "Platform",
			Description:  "Mario's first adventure climbing construction sites to save Pauline.",
			ScoreCeiling: 2000000,
		},
	}
}
