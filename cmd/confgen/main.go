package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"gopkg.in/yaml.v2"

	"github.com/spf13/viper"
)

// confgen собирает локальный конфиг бота из базового шаблона и ENV:
//
//	confgen [output]
//
// База — .config.base.yaml, вывод по умолчанию configs/values_local.yaml.
const defaultOutput = "configs/values_local.yaml"

var envOverrides = map[string]string{
	"SYMBOL":              "symbol",
	"BASE_ASSET":          "base_asset",
	"QUOTE_ASSET":         "quote_asset",
	"TRADE_QUANTITY":      "quantity",
	"ENTRY_THRESHOLD_PCT": "entry_threshold_pct",
	"EXIT_THRESHOLD_PCT":  "exit_threshold_pct",
	"BINANCE_TESTNET_URL": "exchange.base_url",
	"HEALTH_ADDR":         "service.health_addr",
	"LOG_FILE":            "service.log_file",
	"DATABASE_DSN":        "db_dsn",
	"JAEGER_HOST":         "jaeger.host",
}

func generateConfig(output string) error {
	viper.SetConfigName(".config.base")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		return errors.Wrap(err, "read base config")
	}

	// ENV поверх базы; ключей и секретов в файле не бывает
	for env, key := range envOverrides {
		if v := os.Getenv(env); v != "" {
			viper.Set(key, v)
		}
	}

	bs, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		return errors.Wrap(err, "marshal config to yaml")
	}

	if dir, _ := filepath.Split(output); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create output dir")
		}
	}
	if err := os.WriteFile(output, bs, 0o644); err != nil {
		return errors.Wrap(err, "write config")
	}
	return nil
}

func main() {
	output := defaultOutput
	if len(os.Args) > 1 {
		output = os.Args[1]
	}
	if err := generateConfig(output); err != nil {
		panic(fmt.Errorf("confgen: %w", err))
	}
	fmt.Printf("%s file complete\n", output)
}
