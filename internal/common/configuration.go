// Package common provides configuration management, database initialization,
// and HTTP endpoint utilities for the survey engine services. It includes
// support for YAML configuration files, environment variable overrides, CORS
// setup, health endpoints, and PostgreSQL database connections with
// connection pooling.
package common

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
)

// PrintSplash displays the survey engine ASCII banner to the console.
// Typically called during application startup to confirm the service is
// starting.
func PrintSplash() {
	log.Printf(`
	███████╗██╗   ██╗██████╗ ██╗   ██╗███████╗██╗   ██╗     ██████╗  ██████╗
	██╔════╝██║   ██║██╔══██╗██║   ██║██╔════╝╚██╗ ██╔╝    ██╔════╝ ██╔═══██╗
	███████╗██║   ██║██████╔╝██║   ██║█████╗   ╚████╔╝     ██║  ███╗██║   ██║
	╚════██║██║   ██║██╔══██╗╚██╗ ██╔╝██╔══╝    ╚██╔╝      ██║   ██║██║   ██║
	███████║╚██████╔╝██║  ██║ ╚████╔╝ ███████╗   ██║       ╚██████╔╝╚██████╔╝
	╚══════╝ ╚═════╝ ╚═╝  ╚═╝  ╚═══╝  ╚══════╝   ╚═╝        ╚═════╝  ╚═════╝
	`)
}

// Config represents the complete configuration structure for the survey
// service. It combines server settings, database configuration, the
// definition-source selection, archive settings and the CORS policy.
type Config struct {
	Server      ServerConfig      `yaml:"server"`      // HTTP server configuration
	Postgres    PostgresConfig    `yaml:"postgres"`    // PostgreSQL database settings
	Definitions DefinitionsConfig `yaml:"definitions"` // survey definition source
	Mongo       MongoConfig       `yaml:"mongo"`       // MongoDB definition source settings
	Archive     ArchiveConfig     `yaml:"archive"`     // post-finalize S3 archive
	CorsConfig  CorsConfig        `yaml:"cors"`        // CORS policy configuration
}

// ServerConfig contains HTTP server configuration parameters.
type ServerConfig struct {
	Port        int    `yaml:"port"`        // HTTP server port (default: 5004)
	ContextPath string `yaml:"contextPath"` // Base path for all endpoints
}

// PostgresConfig contains PostgreSQL database connection parameters.
// It includes connection pooling settings.
type PostgresConfig struct {
	Host                   string `yaml:"host"`                   // Database host address
	Port                   int    `yaml:"port"`                   // Database port (default: 5432)
	User                   string `yaml:"user"`                   // Database username
	Password               string `yaml:"password"`               // Database password
	DBName                 string `yaml:"dbname"`                 // Database name
	MaxOpenConnections     int    `yaml:"maxOpenConnections"`     // Maximum open connections
	MaxIdleConnections     int    `yaml:"maxIdleConnections"`     // Maximum idle connections
	ConnMaxLifetimeMinutes int    `yaml:"connMaxLifetimeMinutes"` // Connection lifetime in minutes
}

// DSN renders the lib/pq connection string for this configuration.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		p.User, p.Password, p.Host, p.Port, p.DBName)
}

// DefinitionsConfig selects where the immutable survey definition snapshot is
// loaded from at startup.
type DefinitionsConfig struct {
	Source   string `yaml:"source"`   // "postgres" or "mongodb"
	SurveyID int64  `yaml:"surveyId"` // survey to serve
}

// MongoConfig contains the MongoDB definition source settings.
type MongoConfig struct {
	URI        string `yaml:"uri"`        // Connection URI
	Database   string `yaml:"database"`   // Database name
	Collection string `yaml:"collection"` // Survey definition collection
}

// ArchiveConfig configures the post-finalize export of respondent answers
// to S3-compatible object storage.
type ArchiveConfig struct {
	Enabled         bool   `yaml:"enabled"`         // Enable/disable the archive hook
	Bucket          string `yaml:"bucket"`          // Target bucket
	Prefix          string `yaml:"prefix"`          // Object key prefix
	Region          string `yaml:"region"`          // AWS region
	Endpoint        string `yaml:"endpoint"`        // Optional custom endpoint (MinIO etc.)
	AccessKeyID     string `yaml:"accessKeyId"`     // Optional static credentials
	SecretAccessKey string `yaml:"secretAccessKey"` // Optional static credentials
}

// CorsConfig contains Cross-Origin Resource Sharing (CORS) policy settings.
type CorsConfig struct {
	AllowedOrigins   []string `yaml:"allowedOrigins"`   // Allowed origin domains
	AllowedMethods   []string `yaml:"allowedMethods"`   // Allowed HTTP methods
	AllowedHeaders   []string `yaml:"allowedHeaders"`   // Allowed request headers
	AllowCredentials bool     `yaml:"allowCredentials"` // Allow credentials in requests
}

// LoadConfig loads the configuration from YAML files and environment
// variables.
//
// Sources by precedence:
//  1. Environment variables (highest priority)
//  2. Configuration file (if provided)
//  3. Default values (lowest priority)
//
// Environment variables use underscore notation (e.g. SERVER_PORT for
// server.port).
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		log.Printf("📁 Loading config from file: %s", configPath)
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		log.Println("📁 No config file provided — loading from environment variables only")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	log.Println("✅ Configuration loaded successfully")
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 5004)
	v.SetDefault("server.contextPath", "")

	// PostgreSQL defaults
	v.SetDefault("postgres.host", "db")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "admin")
	v.SetDefault("postgres.password", "admin123")
	v.SetDefault("postgres.dbname", "surveyTestDB")
	v.SetDefault("postgres.maxOpenConnections", 50)
	v.SetDefault("postgres.maxIdleConnections", 50)
	v.SetDefault("postgres.connMaxLifetimeMinutes", 5)

	// Definition source defaults
	v.SetDefault("definitions.source", "postgres")
	v.SetDefault("definitions.surveyId", 1)

	// MongoDB defaults
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "survey")
	v.SetDefault("mongo.collection", "definitions")

	// Archive defaults
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.prefix", "respondents/")
	v.SetDefault("archive.region", "eu-central-1")

	// CORS defaults
	v.SetDefault("cors.allowedOrigins", []string{"*"})
	v.SetDefault("cors.allowedMethods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"*"})
	v.SetDefault("cors.allowCredentials", true)
}

// PrintConfiguration prints the current configuration to the console with
// sensitive data redacted. Database credentials and archive secrets are
// masked to prevent accidental exposure in logs.
func PrintConfiguration(cfg *Config) {
	cfgCopy := *cfg

	if cfg.Postgres.Host != "" {
		cfgCopy.Postgres.Host = "****"
		cfgCopy.Postgres.User = "****"
		cfgCopy.Postgres.Password = "****"
	}
	if cfg.Mongo.URI != "" {
		cfgCopy.Mongo.URI = "****"
	}
	if cfg.Archive.SecretAccessKey != "" {
		cfgCopy.Archive.AccessKeyID = "****"
		cfgCopy.Archive.SecretAccessKey = "****"
	}

	configJSON, err := json.MarshalIndent(cfgCopy, "", "  ")
	if err != nil {
		log.Printf("Unable to marshal configuration to JSON: %v", err)
		return
	}

	log.Printf("📜 Loaded configuration:\n%s", string(configJSON))
}

// AddCors configures Cross-Origin Resource Sharing (CORS) middleware for the
// router based on the provided configuration.
func AddCors(r *chi.Mux, config *Config) {
	c := cors.New(cors.Options{
		AllowedOrigins:   config.CorsConfig.AllowedOrigins,
		AllowedMethods:   config.CorsConfig.AllowedMethods,
		AllowedHeaders:   config.CorsConfig.AllowedHeaders,
		AllowCredentials: config.CorsConfig.AllowCredentials,
	})
	r.Use(c.Handler)
}
