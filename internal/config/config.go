// Package config loads runtime configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Logger    LoggerConfig
	Store     StoreConfig
	OCR       OCRConfig
	Camera    CameraConfig
	Auth      AuthConfig
	Inventory InventoryConfig
}

type ServerConfig struct {
	AppEnv          string
	Port            string
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Development       bool
	Level             string
	Encoding          string
	DisableCaller     bool
	DisableStacktrace bool
}

// StoreConfig selects the product store. Driver is "file" or "postgres".
type StoreConfig struct {
	Driver      string
	Path        string
	DatabaseURL string
}

// OCRConfig selects the text-recognition provider once at startup.
type OCRConfig struct {
	Provider     string
	GeminiAPIKey string
	GeminiModel  string
}

type CameraConfig struct {
	Device string
}

// AuthConfig guards the HTTP API with a household passcode.
// Auth is disabled when PasscodeHash is empty.
type AuthConfig struct {
	PasscodeHash string
	JWTSecret    string
	TokenTTL     time.Duration
}

type InventoryConfig struct {
	DefaultStockLevel string
}

const (
	StoreDriverFile     = "file"
	StoreDriverPostgres = "postgres"

	OCRProviderMock   = "mock"
	OCRProviderGemini = "gemini"
)

// LoadEnv collects configuration from the environment with defaults.
func LoadEnv() *Config {
	appEnv := getEnv("APP_ENV", "development")
	production := appEnv == "production"
	level, encoding := "debug", "console"
	if production {
		level, encoding = "info", "json"
	}
	return &Config{
		Server: ServerConfig{
			AppEnv:          appEnv,
			Port:            getEnv("APP_PORT", "8080"),
			ShutdownTimeout: time.Duration(getEnvInt("SHUTDOWN_TIMEOUT", 10)) * time.Second,
		},
		Logger: LoggerConfig{
			Development:       !production,
			Level:             getEnv("LOGGER_LEVEL", level),
			Encoding:          getEnvOneOf("LOGGER_ENCODING", encoding, "console", "json"),
			DisableCaller:     getEnvBool("LOGGER_DISABLE_CALLER", false),
			DisableStacktrace: getEnvBool("LOGGER_DISABLE_STACKTRACE", true),
		},
		Store: StoreConfig{
			Driver:      getEnvOneOf("STORE_DRIVER", StoreDriverFile, StoreDriverFile, StoreDriverPostgres),
			Path:        getEnv("STORE_PATH", "data/products.json"),
			DatabaseURL: getEnv("DATABASE_URL", ""),
		},
		OCR: OCRConfig{
			Provider:     getEnvOneOf("OCR_PROVIDER", OCRProviderMock, OCRProviderMock, OCRProviderGemini),
			GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
			GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		},
		Camera: CameraConfig{
			Device: getEnv("CAMERA_DEVICE", "data/camera.jpg"),
		},
		Auth: AuthConfig{
			PasscodeHash: getEnv("HOUSEHOLD_PASSCODE_HASH", ""),
			JWTSecret:    getEnv("JWT_SECRET", ""),
			TokenTTL:     time.Duration(getEnvInt("TOKEN_TTL_HOURS", 24*30)) * time.Hour,
		},
		Inventory: InventoryConfig{
			DefaultStockLevel: getEnvOneOf("DEFAULT_STOCK_LEVEL", "high", "high", "medium", "low", "empty"),
		},
	}
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	var errs []error
	if c.Store.Driver == StoreDriverPostgres && c.Store.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required when STORE_DRIVER=postgres"))
	}
	if c.Store.Driver == StoreDriverFile && c.Store.Path == "" {
		errs = append(errs, errors.New("STORE_PATH is required when STORE_DRIVER=file"))
	}
	if c.OCR.Provider == OCRProviderGemini && c.OCR.GeminiAPIKey == "" {
		errs = append(errs, errors.New("GEMINI_API_KEY is required when OCR_PROVIDER=gemini"))
	}
	if c.Auth.PasscodeHash != "" && c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required when HOUSEHOLD_PASSCODE_HASH is set"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil && i > 0 {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvOneOf returns the lower-cased value of key when it is one of allowed.
func getEnvOneOf(key, fallback string, allowed ...string) string {
	v := strings.ToLower(strings.TrimSpace(getEnv(key, fallback)))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return fallback
}
