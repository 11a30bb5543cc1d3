// Package config assembles service settings from an optional .env file,
// the process environment and command-line flags, in increasing order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const (
	StorageMemory = "memory"
	StorageLocal  = "local"
	StorageMongo  = "mongo"

	MessageStoreDefault   = "default"
	MessageStoreCassandra = "cassandra"
)

type Config struct {
	ServerPort string

	Storage      string
	LocalDBPath  string
	MongoURI     string
	MongoDBName  string
	MessageStore string
	CassandraDB  string
	CassKeyspace string

	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int

	LogFile  string
	LogLevel string

	Seed            bool
	ShutdownTimeout time.Duration

	BreakerMaxFailures uint32
	BreakerTimeout     time.Duration
}

func defaults() Config {
	return Config{
		ServerPort:         "8080",
		Storage:            StorageMemory,
		LocalDBPath:        "taskboard.db",
		MongoURI:           "mongodb://localhost:27017",
		MongoDBName:        "taskboard",
		MessageStore:       MessageStoreDefault,
		CassandraDB:        "127.0.0.1",
		CassKeyspace:       "taskboard",
		TokenTTL:           2 * time.Hour,
		BcryptCost:         10,
		LogLevel:           "info",
		Seed:               true,
		ShutdownTimeout:    10 * time.Second,
		BreakerMaxFailures: 3,
		BreakerTimeout:     5 * time.Second,
	}
}

// Load reads .env (if present), then the environment, then parses args as
// flags. args excludes the program name.
func Load(args []string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: loading .env: %w", err)
	}

	cfg := defaults()
	if err := cfg.fromEnv(); err != nil {
		return Config{}, err
	}

	flags := pflag.NewFlagSet("taskboard", pflag.ContinueOnError)
	flags.StringVar(&cfg.ServerPort, "port", cfg.ServerPort, "HTTP listen port")
	flags.StringVar(&cfg.Storage, "storage", cfg.Storage, "record store backend: memory, local or mongo")
	flags.StringVar(&cfg.LocalDBPath, "local-db", cfg.LocalDBPath, "SQLite file for the local store")
	flags.StringVar(&cfg.MongoURI, "mongo-uri", cfg.MongoURI, "MongoDB connection string")
	flags.StringVar(&cfg.MongoDBName, "mongo-db", cfg.MongoDBName, "MongoDB database name")
	flags.StringVar(&cfg.MessageStore, "message-store", cfg.MessageStore, "chat history backend: default or cassandra")
	flags.StringVar(&cfg.CassandraDB, "cassandra-host", cfg.CassandraDB, "Cassandra contact point")
	flags.StringVar(&cfg.CassKeyspace, "cassandra-keyspace", cfg.CassKeyspace, "Cassandra keyspace")
	flags.DurationVar(&cfg.TokenTTL, "token-ttl", cfg.TokenTTL, "lifetime of issued tokens")
	flags.IntVar(&cfg.BcryptCost, "bcrypt-cost", cfg.BcryptCost, "bcrypt work factor")
	flags.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "log file path, empty for stdout")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	flags.BoolVar(&cfg.Seed, "seed", cfg.Seed, "insert seed users and tasks when absent")
	flags.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "graceful shutdown deadline")
	flags.Uint32Var(&cfg.BreakerMaxFailures, "breaker-max-failures", cfg.BreakerMaxFailures, "consecutive failures before a breaker opens")
	flags.DurationVar(&cfg.BreakerTimeout, "breaker-timeout", cfg.BreakerTimeout, "how long an open breaker waits before probing")
	if err := flags.Parse(args); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) fromEnv() error {
	setString(&c.ServerPort, "SERVER_PORT")
	setString(&c.Storage, "STORAGE")
	setString(&c.LocalDBPath, "LOCAL_DB_PATH")
	setString(&c.MongoURI, "MONGO_URI")
	setString(&c.MongoDBName, "MONGO_DB_NAME")
	setString(&c.MessageStore, "MESSAGE_STORE")
	setString(&c.CassandraDB, "CASS_DB")
	setString(&c.CassKeyspace, "CASS_KEYSPACE")
	setString(&c.JWTSecret, "JWT_SECRET")
	setString(&c.LogFile, "LOG_FILE")
	setString(&c.LogLevel, "LOG_LEVEL")

	if v, ok := os.LookupEnv("TOKEN_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: TOKEN_TTL: %w", err)
		}
		c.TokenTTL = d
	}
	if v, ok := os.LookupEnv("BCRYPT_COST"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: BCRYPT_COST: %w", err)
		}
		c.BcryptCost = n
	}
	if v, ok := os.LookupEnv("SEED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: SEED: %w", err)
		}
		c.Seed = b
	}
	if v, ok := os.LookupEnv("SHUTDOWN_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: SHUTDOWN_TIMEOUT: %w", err)
		}
		c.ShutdownTimeout = d
	}
	if v, ok := os.LookupEnv("BREAKER_MAX_FAILURES"); ok {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("config: BREAKER_MAX_FAILURES: %w", err)
		}
		c.BreakerMaxFailures = uint32(n)
	}
	if v, ok := os.LookupEnv("BREAKER_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: BREAKER_TIMEOUT: %w", err)
		}
		c.BreakerTimeout = d
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func (c Config) Validate() error {
	switch c.Storage {
	case StorageMemory, StorageLocal, StorageMongo:
	default:
		return fmt.Errorf("config: unknown storage %q", c.Storage)
	}
	switch c.MessageStore {
	case MessageStoreDefault, MessageStoreCassandra:
	default:
		return fmt.Errorf("config: unknown message store %q", c.MessageStore)
	}
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	if c.TokenTTL <= 0 {
		return errors.New("config: token TTL must be positive")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("config: bcrypt cost %d out of range", c.BcryptCost)
	}
	if c.BreakerMaxFailures == 0 {
		return errors.New("config: breaker max failures must be at least 1")
	}
	return nil
}
