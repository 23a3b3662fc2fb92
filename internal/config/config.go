package config

import (
	"fmt"
	"strconv"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Port                 string
	Origin               string
	Environment          string
	LogLevel             string
	JWTSecret            string
	JWTExpirationMinutes int
	RefreshTokenTTLHours int
	MaxImageSizeMB       int
	Database             DatabaseConfig
	Mongo                MongoConfig
	S3                   S3Config
}

// DatabaseConfig holds the MySQL connection details for the credential store
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string
}

// MongoConfig holds the document store connection details
type MongoConfig struct {
	URI      string
	Database string
}

// S3Config holds the object storage settings used for survey images
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Domain          string
}

var defaults = map[string]string{
	"port":                    "3001",
	"origin":                  "http://localhost:4200",
	"environment":             "development",
	"log_level":               "info",
	"jwt_secret":              "default_jwt_secret",
	"jwt_expiration_minutes":  "15",
	"refresh_token_ttl_hours": "72",
	"max_image_size_mb":       "5",
	"db_host":                 "localhost",
	"db_port":                 "3306",
	"db_username":             "root",
	"db_password":             "",
	"db_name":                 "surveys",
	"mongo_uri":               "mongodb://localhost:27017",
	"mongo_db":                "surveys",
	"aws_region":              "",
	"aws_access_key_id":       "",
	"aws_secret_access_key":   "",
	"aws_s3_bucket_name":      "",
	"aws_s3_domain":           "s3.amazonaws.com",
}

// LoadConfig resolves configuration from defaults, an optional config file
// (--config) and environment variables, in increasing order of precedence.
func LoadConfig(args []string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	flags := pflag.NewFlagSet("survey-app-server", pflag.ContinueOnError)
	flags.String("config", "", "Path to an optional configuration file.")
	flags.String("log_level", defaults["log_level"], "Log level.")
	flags.String("port", defaults["port"], "Port to listen on.")
	if err := flags.Parse(args); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	v.AutomaticEnv()

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	dbConfig := DatabaseConfig{
		Host:     v.GetString("db_host"),
		Port:     v.GetString("db_port"),
		Username: v.GetString("db_username"),
		Password: v.GetString("db_password"),
		Name:     v.GetString("db_name"),
	}

	// Build DSN (Data Source Name) for MySQL connection
	dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)

	jwtExpMinutes, err := getInt(v, "jwt_expiration_minutes")
	if err != nil {
		return nil, err
	}

	refreshTTLHours, err := getInt(v, "refresh_token_ttl_hours")
	if err != nil {
		return nil, err
	}

	maxImageSizeMB, err := getInt(v, "max_image_size_mb")
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:                 v.GetString("port"),
		Origin:               v.GetString("origin"),
		Environment:          v.GetString("environment"),
		LogLevel:             v.GetString("log_level"),
		JWTSecret:            v.GetString("jwt_secret"),
		JWTExpirationMinutes: jwtExpMinutes,
		RefreshTokenTTLHours: refreshTTLHours,
		MaxImageSizeMB:       maxImageSizeMB,
		Database:             dbConfig,
		Mongo: MongoConfig{
			URI:      v.GetString("mongo_uri"),
			Database: v.GetString("mongo_db"),
		},
		S3: S3Config{
			Region:          v.GetString("aws_region"),
			AccessKeyID:     v.GetString("aws_access_key_id"),
			SecretAccessKey: v.GetString("aws_secret_access_key"),
			Bucket:          v.GetString("aws_s3_bucket_name"),
			Domain:          v.GetString("aws_s3_domain"),
		},
	}, nil
}

// Redacted returns a copy safe to print, with secrets masked.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "******"
	}
	c.JWTSecret = mask(c.JWTSecret)
	c.Database.Password = mask(c.Database.Password)
	c.Database.DSN = mask(c.Database.DSN)
	c.Mongo.URI = mask(c.Mongo.URI)
	c.S3.SecretAccessKey = mask(c.S3.SecretAccessKey)
	return c
}

func getInt(v *viper.Viper, key string) (int, error) {
	n, err := strconv.Atoi(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
