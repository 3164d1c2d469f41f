// Пакет config — загрузка и валидация конфигурации CardFlux
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации CardFlux.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- PostgreSQL ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Провайдер идентичности ---

	// URL провайдера идентичности (например, https://idp.example.com)
	IDPURL string
	// Client ID для доступа к Admin API провайдера
	IDPClientID string
	// Client Secret для доступа к Admin API провайдера
	IDPClientSecret string

	// --- JWT ---

	// Issuer JWT (авто-вычисляется из IDPURL, если не задан)
	JWTIssuer string
	// URL JWKS endpoint (авто-вычисляется из IDPURL, если не задан)
	JWTJWKSURL string
	// Claim с идентификатором текущей организации
	JWTOrgIDClaim string
	// Claim с названием текущей организации
	JWTOrgNameClaim string
	// Claim с ролью в текущей организации
	JWTOrgRoleClaim string

	// --- Кэш членств ---

	// TTL записи в кэше членств
	MembershipCacheTTL time.Duration
	// Максимальный размер кэша членств
	MembershipCacheSize int

	// --- Прочее ---

	// Имя группы в метриках topologymetrics
	DephealthGroup string
	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// CF_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("CF_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("CF_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("CF_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// CF_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("CF_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("CF_LOG_LEVEL: %w", err)
	}

	// CF_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("CF_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("CF_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- PostgreSQL ---

	// CF_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("CF_DB_HOST")
	if err != nil {
		return nil, err
	}

	// CF_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("CF_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("CF_DB_PORT: %w", err)
	}

	// CF_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("CF_DB_NAME")
	if err != nil {
		return nil, err
	}

	// CF_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("CF_DB_USER")
	if err != nil {
		return nil, err
	}

	// CF_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("CF_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// CF_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("CF_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("CF_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Провайдер идентичности ---

	// CF_IDP_URL — обязательный
	cfg.IDPURL, err = getEnvRequired("CF_IDP_URL")
	if err != nil {
		return nil, err
	}
	// Убираем trailing slash
	cfg.IDPURL = strings.TrimRight(cfg.IDPURL, "/")

	// CF_IDP_CLIENT_ID — обязательный
	cfg.IDPClientID, err = getEnvRequired("CF_IDP_CLIENT_ID")
	if err != nil {
		return nil, err
	}

	// CF_IDP_CLIENT_SECRET — обязательный
	cfg.IDPClientSecret, err = getEnvRequired("CF_IDP_CLIENT_SECRET")
	if err != nil {
		return nil, err
	}

	// --- JWT ---

	// CF_JWT_ISSUER — авто-вычисляется из IDPURL, если не задан
	cfg.JWTIssuer = getEnvDefault("CF_JWT_ISSUER", cfg.IDPURL)

	// CF_JWT_JWKS_URL — авто-вычисляется из IDPURL, если не задан
	cfg.JWTJWKSURL = getEnvDefault("CF_JWT_JWKS_URL",
		fmt.Sprintf("%s/.well-known/jwks.json", cfg.IDPURL))

	// CF_JWT_ORG_ID_CLAIM — claim с id организации (по умолчанию org_id)
	cfg.JWTOrgIDClaim = getEnvDefault("CF_JWT_ORG_ID_CLAIM", "org_id")

	// CF_JWT_ORG_NAME_CLAIM — claim с названием организации (по умолчанию org_name)
	cfg.JWTOrgNameClaim = getEnvDefault("CF_JWT_ORG_NAME_CLAIM", "org_name")

	// CF_JWT_ORG_ROLE_CLAIM — claim с ролью в организации (по умолчанию org_role)
	cfg.JWTOrgRoleClaim = getEnvDefault("CF_JWT_ORG_ROLE_CLAIM", "org_role")

	// --- Кэш членств ---

	// CF_MEMBERSHIP_CACHE_TTL — TTL кэша членств (по умолчанию 30s)
	cfg.MembershipCacheTTL, err = getEnvDuration("CF_MEMBERSHIP_CACHE_TTL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CF_MEMBERSHIP_CACHE_TTL: %w", err)
	}

	// CF_MEMBERSHIP_CACHE_SIZE — размер кэша членств (по умолчанию 10000)
	cfg.MembershipCacheSize, err = getEnvInt("CF_MEMBERSHIP_CACHE_SIZE", 10000)
	if err != nil {
		return nil, fmt.Errorf("CF_MEMBERSHIP_CACHE_SIZE: %w", err)
	}
	if cfg.MembershipCacheSize < 1 {
		return nil, fmt.Errorf("CF_MEMBERSHIP_CACHE_SIZE: значение %d должно быть положительным", cfg.MembershipCacheSize)
	}

	// --- Прочее ---

	// CF_DEPHEALTH_GROUP — имя группы topologymetrics (по умолчанию cardflux)
	cfg.DephealthGroup = getEnvDefault("CF_DEPHEALTH_GROUP", "cardflux")

	// CF_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("CF_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CF_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// CF_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("CF_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CF_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения к PostgreSQL.
// Используется topologymetrics для лейблов метрик.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
