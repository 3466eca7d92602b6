// Package config собирает конфигурацию сервиса из значений по умолчанию,
// флагов командной строки и переменных окружения.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

const (
	defaultServerAddress    = ":8080"
	defaultAppTroveBaseURL  = "https://api.apptrove.com"
	defaultAppTroveTimeout  = 15 * time.Second
	defaultTemplateCacheTTL = 5 * time.Minute
	generatedSecretBytes    = 32
)

// AppTroveConfig хранит настройки доступа к API AppTrove.
// Любое из ключевых полей может быть пустым: такой набор учетных данных просто не используется.
type AppTroveConfig struct {
	BaseURL          string        `env:"BASE_URL"`
	ReportingAPIKey  string        `env:"REPORTING_API_KEY"`
	APIKey           string        `env:"API_KEY"`
	SecretID         string        `env:"SECRET_ID"`
	SecretKey        string        `env:"SECRET_KEY"`
	Timeout          time.Duration `env:"TIMEOUT"`
	TemplateCacheTTL time.Duration `env:"TEMPLATES_CACHE_TTL"`
}

// Config хранит конфигурацию приложения.
// После NewConfig структура не изменяется и передается компонентам явно.
type Config struct {
	ServerAddress   string `env:"SERVER_ADDRESS"`    // Адрес для запуска HTTP-сервера
	FileStoragePath string `env:"FILE_STORAGE_PATH"` // Путь к файлу хранилища записей
	DatabaseDSN     string `env:"DATABASE_DSN"`      // Строка подключения к PostgreSQL
	EnableHTTPS     string `env:"ENABLE_HTTPS"`      // Любое непустое значение включает HTTPS
	TLSCertFile     string `env:"TLS_CERT_FILE"`
	TLSKeyFile      string `env:"TLS_KEY_FILE"`
	SecretKey       string `env:"SECRET_KEY"` // Ключ подписи сессионных токенов партнеров

	// SecretKeyGenerated - SECRET_KEY не задан, и ключ сгенерирован при запуске.
	// Выданные сессии не переживут перезапуск.
	SecretKeyGenerated bool

	AppTrove AppTroveConfig `envPrefix:"APPTROVE_"`
}

// Default возвращает конфигурацию со значениями по умолчанию.
// Ключ подписи сессий каждый раз генерируется заново.
func Default() *Config {
	return &Config{
		ServerAddress:      defaultServerAddress,
		TLSCertFile:        "server.crt",
		TLSKeyFile:         "server.key",
		SecretKey:          randomSecret(),
		SecretKeyGenerated: true,
		AppTrove: AppTroveConfig{
			BaseURL:          defaultAppTroveBaseURL,
			Timeout:          defaultAppTroveTimeout,
			TemplateCacheTTL: defaultTemplateCacheTTL,
		},
	}
}

// NewConfig инициализирует конфигурацию, читая флаги и переменные окружения.
// Приоритет: значения по умолчанию < флаги < переменные окружения.
func NewConfig() (*Config, error) {
	cfg := Default()

	flag.StringVar(&cfg.ServerAddress, "a", cfg.ServerAddress, "Адрес запуска HTTP-сервера (env: SERVER_ADDRESS)")
	flag.StringVar(&cfg.FileStoragePath, "f", cfg.FileStoragePath, "Путь к файлу хранилища (env: FILE_STORAGE_PATH)")
	flag.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "Строка подключения к БД (env: DATABASE_DSN)")
	flag.StringVar(&cfg.EnableHTTPS, "s", cfg.EnableHTTPS, "Включить HTTPS (env: ENABLE_HTTPS)")
	flag.StringVar(&cfg.AppTrove.BaseURL, "apptrove-url", cfg.AppTrove.BaseURL, "Базовый адрес API AppTrove (env: APPTROVE_BASE_URL)")

	flag.Parse()

	generated := cfg.SecretKey
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.SecretKey = strings.TrimSpace(cfg.SecretKey)
	if cfg.SecretKey == "" {
		cfg.SecretKey = generated
	}
	cfg.SecretKeyGenerated = cfg.SecretKey == generated
	cfg.AppTrove.BaseURL = strings.TrimRight(cfg.AppTrove.BaseURL, "/")

	return cfg, nil
}

// IsHTTPSEnabled сообщает, нужно ли запускать сервер по HTTPS.
func (c *Config) IsHTTPSEnabled() bool {
	return c.EnableHTTPS != ""
}

// randomSecret возвращает случайный ключ в шестнадцатеричном виде
func randomSecret() string {
	buf := make([]byte, generatedSecretBytes)
	// rand.Read не возвращает ошибок начиная с Go 1.24
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
