// Package config содержит логику чтения конфигурации витрины.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	defaultRunAddress       = "localhost:3000"
	defaultCurrency         = "₹"
	defaultDeliveryFee      = 249
	defaultProductID        = "67dd79e5366d9c007a9545a0"
	defaultStoragePath      = ".storefront/storage.json"
	defaultEnvFile          = ".env"
	errBackendURLIsRequired = "backend url is required"
)

// Config содержит параметры конфигурации витрины.
type Config struct {
	BackendURL       string
	Currency         string
	DeliveryFee      int64
	RazorpayKeyID    string
	DefaultProductID string
	Sheets           string
	RunAddress       string
	StoragePath      string
	DatabaseURI      string
	Origin           string
}

// envConfig повторяет Config, но отличает незаданную переменную от пустой.
type envConfig struct {
	BackendURL       *string `env:"BACKEND_URL"`
	Currency         *string `env:"CURRENCY"`
	DeliveryFee      *int64  `env:"DELIVERY_FEE"`
	RazorpayKeyID    *string `env:"RAZORPAY_KEY_ID"`
	DefaultProductID *string `env:"DEFAULT_PRODUCT_ID"`
	Sheets           *string `env:"SHEETS"`
	RunAddress       *string `env:"RUN_ADDRESS"`
	StoragePath      *string `env:"STORAGE_PATH"`
	DatabaseURI      *string `env:"DATABASE_URI"`
	Origin           *string `env:"ORIGIN"`
}

// Binding связывает флаги с конфигурацией до разбора аргументов.
// Переменные окружения имеют приоритет над флагами.
type Binding struct {
	cfg Config
	env envConfig
}

// Bind читает окружение (включая файл .env, если он есть) и регистрирует флаги в fs.
func Bind(fs *flag.FlagSet) (*Binding, error) {
	if err := godotenv.Load(defaultEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", defaultEnvFile, err)
	}

	b := &Binding{}
	if err := env.Parse(&b.env); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fs.StringVar(&b.cfg.BackendURL, "b", "", "backend base URL")
	fs.StringVar(&b.cfg.Currency, "c", defaultCurrency, "currency display prefix")
	fs.Int64Var(&b.cfg.DeliveryFee, "f", defaultDeliveryFee, "delivery fee added at checkout")
	fs.StringVar(&b.cfg.RazorpayKeyID, "k", "", "payment gateway merchant key")
	fs.StringVar(&b.cfg.DefaultProductID, "p", defaultProductID, "product opened by the order now button")
	fs.StringVar(&b.cfg.Sheets, "s", "", "contact form webhook URL")
	fs.StringVar(&b.cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	fs.StringVar(&b.cfg.StoragePath, "t", defaultStoragePath, "file for durable storage")
	fs.StringVar(&b.cfg.DatabaseURI, "d", "", "database URI for durable storage")
	fs.StringVar(&b.cfg.Origin, "o", "", "storage origin namespace")

	return b, nil
}

// Resolve применяет переменные окружения поверх разобранных флагов и проверяет результат.
func (b *Binding) Resolve() (*Config, error) {
	cfg := b.cfg

	overrideString(&cfg.BackendURL, b.env.BackendURL)
	overrideString(&cfg.Currency, b.env.Currency)
	overrideString(&cfg.RazorpayKeyID, b.env.RazorpayKeyID)
	overrideString(&cfg.DefaultProductID, b.env.DefaultProductID)
	overrideString(&cfg.Sheets, b.env.Sheets)
	overrideString(&cfg.RunAddress, b.env.RunAddress)
	overrideString(&cfg.StoragePath, b.env.StoragePath)
	overrideString(&cfg.DatabaseURI, b.env.DatabaseURI)
	overrideString(&cfg.Origin, b.env.Origin)
	if b.env.DeliveryFee != nil {
		cfg.DeliveryFee = *b.env.DeliveryFee
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.StoragePath == "" {
		cfg.StoragePath = defaultStoragePath
	}
	if cfg.Origin == "" {
		cfg.Origin = "http://" + strings.TrimPrefix(cfg.RunAddress, "http://")
	}

	if cfg.BackendURL == "" {
		return nil, errors.New(errBackendURLIsRequired)
	}
	if cfg.DeliveryFee < 0 {
		return nil, fmt.Errorf("delivery fee must not be negative: %d", cfg.DeliveryFee)
	}

	return &cfg, nil
}

func overrideString(dst *string, v *string) {
	if v != nil && *v != "" {
		*dst = *v
	}
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	b, err := Bind(flag.CommandLine)
	if err != nil {
		return nil, err
	}

	flag.Parse()

	return b.Resolve()
}
