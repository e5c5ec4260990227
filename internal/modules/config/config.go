package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	apiKeyENV         = "BINANCE_API_KEY"
	apiSecretENV      = "BINANCE_API_SECRET"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	databaseDSN       = "DATABASE_DSN"
)

// Config ...
type Config struct {
	Exchange struct {
		// Тестнет по умолчанию — боевой URL только явно.
		BaseURL string `yaml:"base_url"`
	} `yaml:"exchange"`
	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
	DB      string `yaml:"db_dsn"`
	Service struct {
		HealthAddr string `yaml:"health_addr"`
		LogFile    string `yaml:"log_file"`
	} `yaml:"service"`
	Jaeger struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"jaeger"`

	Symbol     string  `yaml:"symbol"`
	BaseAsset  string  `yaml:"base_asset"`
	QuoteAsset string  `yaml:"quote_asset"`
	Quantity   float64 `yaml:"quantity"`

	// Пороги в процентах: например 0.1 => 0.1%
	EntryThresholdPct float64 `yaml:"entry_threshold_pct"`
	ExitThresholdPct  float64 `yaml:"exit_threshold_pct"`

	PollInterval time.Duration `yaml:"poll_interval"`
	CallTimeout  time.Duration `yaml:"call_timeout"`

	ConfirmRequired bool          `yaml:"confirm_required"`
	ConfirmTimeout  time.Duration `yaml:"confirm_timeout"`

	// Секреты только из ENV, в yaml им не место.
	APIKey    string `yaml:"-"`
	APISecret string `yaml:"-"`
}

func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	config := Config{
		Symbol:            getenvDefault("SYMBOL", "BTCUSDT"),
		BaseAsset:         getenvDefault("BASE_ASSET", "BTC"),
		QuoteAsset:        getenvDefault("QUOTE_ASSET", "USDT"),
		Quantity:          floatFromEnv("TRADE_QUANTITY", 0.001),
		EntryThresholdPct: floatFromEnv("ENTRY_THRESHOLD_PCT", 0.1),
		ExitThresholdPct:  floatFromEnv("EXIT_THRESHOLD_PCT", 0.1),
		PollInterval:      durationFromEnv("POLL_INTERVAL", "5s"),
		CallTimeout:       durationFromEnv("CALL_TIMEOUT", "10s"),
		ConfirmRequired:   boolFromEnv("CONFIRM_REQUIRED", false),
		ConfirmTimeout:    durationFromEnv("CONFIRM_TIMEOUT", "30s"),
	}
	config.Exchange.BaseURL = getenvDefault("BINANCE_TESTNET_URL", "https://testnet.binance.vision")
	config.Service.HealthAddr = getenvDefault("HEALTH_ADDR", ":8080")
	config.Service.LogFile = getenvDefault("LOG_FILE", "spot_trading_bot.log")

	// yaml-файл опционален: без него живём на ENV и дефолтах
	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	if file, err := os.Open("configs/" + configFileName); err == nil {
		decoder := yaml.NewDecoder(file)
		decodeErr := decoder.Decode(&config)
		_ = file.Close()
		if decodeErr != nil {
			return nil, fmt.Errorf("decode config file %s: %w", configFileName, decodeErr)
		}
	}

	config.APIKey = os.Getenv(apiKeyENV)
	config.APISecret = os.Getenv(apiSecretENV)

	if token := os.Getenv(tokenTelegramENV); token != "" {
		config.Telegram.Token = token
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.Telegram.ChatID = id
		}
	}
	if dsn := os.Getenv(databaseDSN); dsn != "" {
		config.DB = dsn
	}

	if config.Quantity <= 0 {
		return nil, fmt.Errorf("TRADE_QUANTITY must be positive, got %v", config.Quantity)
	}
	if config.EntryThresholdPct <= 0 || config.ExitThresholdPct <= 0 {
		return nil, fmt.Errorf("thresholds must be positive, got entry=%v exit=%v",
			config.EntryThresholdPct, config.ExitThresholdPct)
	}
	return &config, nil
}

func floatFromEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func boolFromEnv(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if v == "1" || v == "true" || v == "TRUE" {
			return true
		}
		if v == "0" || v == "false" || v == "FALSE" {
			return false
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationFromEnv(key, def string) time.Duration {
	val := getenvDefault(key, def)
	d, err := time.ParseDuration(val)
	if err != nil {
		d, _ = time.ParseDuration(def)
	}
	return d
}
