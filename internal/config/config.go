package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var configLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	configLogger = l
}

const SupportedVersion = "1"

// Config represents the complete configuration structure
type Config struct {
	Version string        `yaml:"version" default:"1"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Drafts  DraftsConfig  `yaml:"drafts"`
	Storage StorageConfig `yaml:"storage"`
	Remote  RemoteConfig  `yaml:"remote"`
	Auth    AuthConfig    `yaml:"auth"`
}

type LoggingConfig struct {
	Level string `yaml:"level" default:"info" env:"DRAFTDESK_LOG_LEVEL"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            string        `yaml:"port" default:"12600" env:"DRAFTDESK_PORT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
}

type DraftsConfig struct {
	MaxDrafts        int           `yaml:"max_drafts" default:"20"`
	AutosaveInterval time.Duration `yaml:"autosave_interval" default:"5s"`
	FallbackDir      string        `yaml:"fallback_dir" default:"./data/unload"`
	ExcerptLength    int           `yaml:"excerpt_length" default:"140"`
}

type StorageConfig struct {
	// One of sqlite, redis, s3, memory.
	Backend     string        `yaml:"backend" default:"sqlite" env:"DRAFTDESK_STORAGE_BACKEND"`
	Compression string        `yaml:"compression" default:"zstd"`
	SQLite      SQLiteConfig  `yaml:"sqlite"`
	Redis       RedisConfig   `yaml:"redis"`
	S3          S3Config      `yaml:"s3"`
	Timeout     time.Duration `yaml:"timeout" default:"5s"`
}

type SQLiteConfig struct {
	Path string `yaml:"path" default:"./data/drafts.db"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr" default:"" env:"DRAFTDESK_REDIS_ADDR"`
	Password  string `yaml:"password" default:"" env:"DRAFTDESK_REDIS_PASSWORD"`
	DB        int    `yaml:"db" default:"0"`
	KeyPrefix string `yaml:"key_prefix" default:"draftdesk:"`
}

type S3Config struct {
	Endpoint        string `yaml:"endpoint" default:"" env:"DRAFTDESK_S3_ENDPOINT"`
	Region          string `yaml:"region" default:"auto"`
	Bucket          string `yaml:"bucket" default:"" env:"DRAFTDESK_S3_BUCKET"`
	Prefix          string `yaml:"prefix" default:"drafts/"`
	AccessKeyID     string `yaml:"access_key_id" default:"" env:"DRAFTDESK_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" default:"" env:"DRAFTDESK_S3_SECRET_ACCESS_KEY"`
}

type RemoteConfig struct {
	BaseURL string        `yaml:"base_url" default:"http://localhost:8080/api" env:"DRAFTDESK_REMOTE_URL"`
	Token   string        `yaml:"token" default:"" env:"DRAFTDESK_REMOTE_TOKEN"`
	Timeout time.Duration `yaml:"timeout" default:"15s"`
}

type AuthConfig struct {
	Enabled   bool   `yaml:"enabled" default:"false" env:"DRAFTDESK_AUTH_ENABLED"`
	PublicKey string `yaml:"public_key" default:"" env:"DRAFTDESK_ED25519_PUBKEY"`
	Header    string `yaml:"header" default:"Authorization"`
	User      string `yaml:"user" default:"admin"`
}

var AppConfig *Config

func LoadConfig(path string) error {
	config := &Config{}

	// Apply default values first
	applyDefaults(config)

	data, err := os.ReadFile(path)
	if err != nil {
		configLogger.Info().Str("path", path).Msg("Config file not found, using defaults")
	} else if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf(ErrParseConfigFmt, err)
	}

	applyEnv(config)

	if err := config.Validate(); err != nil {
		return err
	}

	AppConfig = config
	return nil
}

func (c *Config) Validate() error {
	if c.Version != SupportedVersion {
		return fmt.Errorf("unsupported configuration version %q", c.Version)
	}

	switch c.Storage.Backend {
	case BackendSQLite, BackendRedis, BackendS3, BackendMemory:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	switch c.Storage.Compression {
	case CompressionZstd, CompressionGzip, CompressionNone:
	default:
		return fmt.Errorf("unknown compression %q", c.Storage.Compression)
	}

	if c.Drafts.MaxDrafts <= 0 {
		return fmt.Errorf("drafts.max_drafts must be positive, got %d", c.Drafts.MaxDrafts)
	}
	if c.Drafts.AutosaveInterval < time.Second {
		return fmt.Errorf("drafts.autosave_interval must be at least 1s, got %s", c.Drafts.AutosaveInterval)
	}
	if c.Auth.Enabled && c.Auth.PublicKey == "" {
		return fmt.Errorf("auth is enabled but no public key is configured")
	}
	return nil
}

func ApplyDefaults(config interface{}) {
	applyDefaults(config)
}

var durationType = reflect.TypeOf(time.Duration(0))

func applyDefaults(config interface{}) {
	walkFields(config, "default")
}

// applyEnv overrides fields tagged with `env` from the process environment.
func applyEnv(config interface{}) {
	walkFields(config, "env")
}

func walkFields(config interface{}, tag string) {
	v := reflect.ValueOf(config)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.IsValid() || !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct {
			walkFields(field.Addr().Interface(), tag)
			continue
		}

		value := fieldType.Tag.Get(tag)
		if tag == "env" {
			if value == "" {
				continue
			}
			var ok bool
			if value, ok = os.LookupEnv(value); !ok {
				continue
			}
		} else if value == "" {
			continue
		}

		setField(field, fieldType, value)
	}
}

func setField(field reflect.Value, fieldType reflect.StructField, value string) {
	if field.Type() == durationType {
		if d, err := time.ParseDuration(value); err == nil {
			field.SetInt(int64(d))
		}
		return
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		if val, err := strconv.ParseBool(value); err == nil {
			field.SetBool(val)
		}
	case reflect.Int:
		if val, err := strconv.ParseInt(value, 10, 64); err == nil {
			field.SetInt(val)
		}
	case reflect.Float64:
		if val, err := strconv.ParseFloat(value, 64); err == nil {
			field.SetFloat(val)
		}
	case reflect.Slice:
		if field.Len() == 0 && field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
			for j, part := range parts {
				slice.Index(j).SetString(strings.TrimSpace(part))
			}
			field.Set(slice)
		}
	default:
		configLogger.Warn().
			Str("field_name", fieldType.Name).
			Str("field_type", field.Kind().String()).
			Msg("Unsupported field type for default value")
	}
}
