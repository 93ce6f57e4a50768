package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	// StaticDir is the absolute path to the viewer UI served at /.
	// Set via STATIC_DIR (relative paths are resolved against the process working directory at startup).
	StaticDir string

	SQLiteDriver          string
	SQLiteDSN             string
	SQLitePath            string
	SQLiteMaxOpenConns    int
	SQLiteMaxIdleConns    int
	SQLiteConnMaxLifetime time.Duration
	SQLiteLogStatements   bool

	MQTTBroker         string
	MQTTPort           int
	MQTTClientID       string
	MQTTTopicPrefix    string
	MQTTConnectTimeout time.Duration

	// SerialPort is empty when the serial listener is disabled.
	SerialPort           string
	SerialBaud           int
	SerialPersist        bool
	SerialReopenInterval time.Duration

	// Used by cmd/simulator only.
	SimDeviceID string
	SimInterval time.Duration
}

func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	httpAddr := envOr("HTTP_ADDR", ":3000")

	staticDir, err := filepath.Abs(envOr("STATIC_DIR", "public"))
	if err != nil {
		return Config{}, fmt.Errorf("STATIC_DIR %q: %w", staticDir, err)
	}

	maxOpenConns, err := envInt("DB_MAX_OPEN_CONNS", 1)
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := envInt("DB_MAX_IDLE_CONNS", 1)
	if err != nil {
		return Config{}, err
	}
	connMaxLifetime, err := envDuration("DB_CONN_MAX_LIFETIME", 0)
	if err != nil {
		return Config{}, err
	}
	logStatements, err := envBool("DB_LOG_SQL", false)
	if err != nil {
		return Config{}, err
	}
	dbDriver := envOr("DB_DRIVER", "sqlite3")
	// The statement tracer wraps go-sqlite3 directly.
	if logStatements && dbDriver != "sqlite3" {
		return Config{}, fmt.Errorf("DB_LOG_SQL requires DB_DRIVER=sqlite3, got %q", dbDriver)
	}

	mqttPort, err := envInt("MQTT_PORT", 1883)
	if err != nil {
		return Config{}, err
	}
	if mqttPort <= 0 || mqttPort > 65535 {
		return Config{}, fmt.Errorf("MQTT_PORT out of range: %d", mqttPort)
	}
	connectTimeout, err := envDuration("MQTT_CONNECT_TIMEOUT", 5*time.Second)
	if err != nil {
		return Config{}, err
	}
	topicPrefix := strings.Trim(envOr("MQTT_TOPIC_PREFIX", "uts/iot"), "/")
	if topicPrefix == "" {
		return Config{}, fmt.Errorf("MQTT_TOPIC_PREFIX must not be empty")
	}
	if strings.ContainsAny(topicPrefix, "+#") {
		return Config{}, fmt.Errorf("MQTT_TOPIC_PREFIX %q must not contain wildcards", topicPrefix)
	}

	serialBaud, err := envInt("SERIAL_BAUD", 115200)
	if err != nil {
		return Config{}, err
	}
	if serialBaud <= 0 {
		return Config{}, fmt.Errorf("SERIAL_BAUD must be positive, got %d", serialBaud)
	}
	serialPersist, err := envBool("SERIAL_PERSIST", true)
	if err != nil {
		return Config{}, err
	}
	reopenInterval, err := envDuration("SERIAL_REOPEN_INTERVAL", 5*time.Second)
	if err != nil {
		return Config{}, err
	}
	if reopenInterval <= 0 {
		return Config{}, fmt.Errorf("SERIAL_REOPEN_INTERVAL must be positive, got %v", reopenInterval)
	}

	simDeviceID := envOr("SIM_DEVICE_ID", "esp32a")
	if strings.ContainsAny(simDeviceID, "/+#") {
		return Config{}, fmt.Errorf("SIM_DEVICE_ID %q must be a single topic segment", simDeviceID)
	}
	simInterval, err := envDuration("SIM_INTERVAL", 5*time.Second)
	if err != nil {
		return Config{}, err
	}
	if simInterval <= 0 {
		return Config{}, fmt.Errorf("SIM_INTERVAL must be positive, got %v", simInterval)
	}

	return Config{
		AppEnv:    appEnv,
		LogLevel:  level,
		HTTPAddr:  httpAddr,
		StaticDir: staticDir,

		SQLiteDriver:          dbDriver,
		SQLiteDSN:             strings.TrimSpace(os.Getenv("DB_DSN")),
		SQLitePath:            envOr("SQLITE_PATH", "sensors.db"),
		SQLiteMaxOpenConns:    maxOpenConns,
		SQLiteMaxIdleConns:    maxIdleConns,
		SQLiteConnMaxLifetime: connMaxLifetime,
		SQLiteLogStatements:   logStatements,

		MQTTBroker:         envOr("MQTT_BROKER", "test.mosquitto.org"),
		MQTTPort:           mqttPort,
		MQTTClientID:       envOr("MQTT_CLIENT_ID", "uts-iot-server"),
		MQTTTopicPrefix:    topicPrefix,
		MQTTConnectTimeout: connectTimeout,

		SerialPort:           strings.TrimSpace(os.Getenv("SERIAL_PORT")),
		SerialBaud:           serialBaud,
		SerialPersist:        serialPersist,
		SerialReopenInterval: reopenInterval,

		SimDeviceID: simDeviceID,
		SimInterval: simInterval,
	}, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(key string, def int) (int, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

func envBool(key string, def bool) (bool, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return b, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
