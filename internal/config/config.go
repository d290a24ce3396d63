// Package config provides functionality for managing configuration options
// for the application using command-line flags, environment variables, and
// an optional JSON config file.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Options holds the configuration values for the application.
type Options struct {
	// Addr defines the control API's listening address (ip:port).
	Addr string

	// BackendURL is the base URL of the smart-home backend API.
	BackendURL string

	// DatabaseDSN holds the Postgres connection string for the audit trail.
	// Empty disables auditing.
	DatabaseDSN string

	// DoorDeviceID is the device the session gate controls.
	DoorDeviceID string

	// APIToken protects the control API. Empty disables token auth.
	APIToken string

	// VerifyTimeout bounds one backend verification call.
	VerifyTimeout time.Duration

	// LogLevel sets the zap log level.
	LogLevel string

	// Config is the path to the config file.
	Config string
}

// options holds the current configuration values.
var options = &Options{}

// init initializes command-line flags and sets default values.
func init() {
	flag.StringVar(&options.Addr, "a", "localhost:8090", "run control API on ip:port")
	flag.StringVar(&options.BackendURL, "b", "http://localhost:8080", "backend base URL")
	flag.StringVar(&options.DatabaseDSN, "d", "", "audit db address (empty disables audit)")
	flag.StringVar(&options.DoorDeviceID, "door", "", "door device id to gate")
	flag.StringVar(&options.LogLevel, "l", "info", "log level")
	flag.DurationVar(&options.VerifyTimeout, "verify-timeout", 30*time.Second, "backend verification timeout")
	flag.StringVar(&options.Config, "config", "config.json", "path to config file")
	flag.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
}

// Parse parses the command-line flags, the config file, and environment
// variables to set configuration values. It returns a pointer to the Options
// struct containing the parsed configuration values.
func Parse() *Options {
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("no .env file loaded, relying on environment and flags")
	}

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				log.Fatalf("error while reading config file: %v", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				log.Fatalf("error while parsing config file: %v", err)
			}
		}
	}

	if addr := os.Getenv("SERVER_ADDRESS"); addr != "" {
		options.Addr = addr
	}
	if backend := os.Getenv("BACKEND_URL"); backend != "" {
		options.BackendURL = backend
	}
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		options.DatabaseDSN = dsn
	}
	if door := os.Getenv("DOOR_DEVICE_ID"); door != "" {
		options.DoorDeviceID = door
	}
	if token := os.Getenv("API_TOKEN"); token != "" {
		options.APIToken = token
	}

	return options
}
