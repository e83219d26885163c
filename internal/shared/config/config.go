package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config — полная конфигурация проекта
type Config struct {
	Database  DBConfig
	RabbitMQ  MQConfig
	Processor ProcessorConfig
	Metrics   MetricsConfig
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

type MQConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	VHost    string
}

// ProcessorConfig controls batching and the worker pool of the stream processor.
type ProcessorConfig struct {
	BatchSize       int // max records per batch
	BatchLingerMS   int // max wait for a partial batch, milliseconds
	WorkerPoolSize  int // concurrent records within a batch
	Prefetch        int // AMQP QoS prefetch
	RecordTTLHours  int // trips.expiry_time horizon
	DeadLetterQueue string
	EventQueue      string
	Exchange        string
}

type MetricsConfig struct {
	Port int
}

// Load — загрузка из CONFIG_DIR (по умолчанию ./config) + ENV перекрывает
func Load() Config {
	configDir := getEnv("CONFIG_DIR", "./config")
	cfg := Config{}

	// db.yaml
	dbPath := filepath.Join(configDir, "db.yaml")
	if dbKV, err := parseYAML(dbPath); err == nil {
		cfg.Database.Host = getStrWithEnv("DB_HOST", dbKV, "host", "localhost")
		cfg.Database.Port = getIntWithEnv("DB_PORT", dbKV, "port", 5432)
		cfg.Database.User = getStrWithEnv("DB_USER", dbKV, "user", "boltride_user")
		cfg.Database.Password = getStrWithEnv("DB_PASSWORD", dbKV, "password", "boltride_pass")
		cfg.Database.Database = getStrWithEnv("DB_NAME", dbKV, "database", "boltride_db")
		cfg.Database.SSLMode = getStrWithEnv("DB_SSLMODE", dbKV, "sslmode", "disable")
	} else {
		cfg.Database.Host = getEnv("DB_HOST", "localhost")
		cfg.Database.Port = getEnvInt("DB_PORT", 5432)
		cfg.Database.User = getEnv("DB_USER", "boltride_user")
		cfg.Database.Password = getEnv("DB_PASSWORD", "boltride_pass")
		cfg.Database.Database = getEnv("DB_NAME", "boltride_db")
		cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	}

	// mq.yaml
	mqPath := filepath.Join(configDir, "mq.yaml")
	if mqKV, err := parseYAML(mqPath); err == nil {
		cfg.RabbitMQ.Host = getStrWithEnv("RABBITMQ_HOST", mqKV, "host", "localhost")
		cfg.RabbitMQ.Port = getIntWithEnv("RABBITMQ_PORT", mqKV, "port", 5672)
		cfg.RabbitMQ.User = getStrWithEnv("RABBITMQ_USER", mqKV, "user", "guest")
		cfg.RabbitMQ.Password = getStrWithEnv("RABBITMQ_PASSWORD", mqKV, "password", "guest")
		cfg.RabbitMQ.VHost = getStrWithEnv("RABBITMQ_VHOST", mqKV, "vhost", "/")
	} else {
		cfg.RabbitMQ.Host = getEnv("RABBITMQ_HOST", "localhost")
		cfg.RabbitMQ.Port = getEnvInt("RABBITMQ_PORT", 5672)
		cfg.RabbitMQ.User = getEnv("RABBITMQ_USER", "guest")
		cfg.RabbitMQ.Password = getEnv("RABBITMQ_PASSWORD", "guest")
		cfg.RabbitMQ.VHost = getEnv("RABBITMQ_VHOST", "/")
	}

	// processor.yaml
	procPath := filepath.Join(configDir, "processor.yaml")
	if procKV, err := parseYAML(procPath); err == nil {
		cfg.Processor.BatchSize = getIntWithEnv("BATCH_SIZE", procKV, "batch_size", 100)
		cfg.Processor.BatchLingerMS = getIntWithEnv("BATCH_LINGER_MS", procKV, "batch_linger_ms", 500)
		cfg.Processor.WorkerPoolSize = getIntWithEnv("WORKER_POOL_SIZE", procKV, "worker_pool_size", 8)
		cfg.Processor.Prefetch = getIntWithEnv("PREFETCH", procKV, "prefetch", 200)
		cfg.Processor.RecordTTLHours = getIntWithEnv("RECORD_TTL_HOURS", procKV, "record_ttl_hours", 24)
		cfg.Processor.EventQueue = getStrWithEnv("EVENT_QUEUE", procKV, "event_queue", "trip.events")
		cfg.Processor.DeadLetterQueue = getStrWithEnv("DEAD_LETTER_QUEUE", procKV, "dead_letter_queue", "trip.dead_letter")
		cfg.Processor.Exchange = getStrWithEnv("TRIP_EXCHANGE", procKV, "exchange", "trip_topic")
	} else {
		cfg.Processor.BatchSize = getEnvInt("BATCH_SIZE", 100)
		cfg.Processor.BatchLingerMS = getEnvInt("BATCH_LINGER_MS", 500)
		cfg.Processor.WorkerPoolSize = getEnvInt("WORKER_POOL_SIZE", 8)
		cfg.Processor.Prefetch = getEnvInt("PREFETCH", 200)
		cfg.Processor.RecordTTLHours = getEnvInt("RECORD_TTL_HOURS", 24)
		cfg.Processor.EventQueue = getEnv("EVENT_QUEUE", "trip.events")
		cfg.Processor.DeadLetterQueue = getEnv("DEAD_LETTER_QUEUE", "trip.dead_letter")
		cfg.Processor.Exchange = getEnv("TRIP_EXCHANGE", "trip_topic")
	}

	// metrics.yaml
	metricsPath := filepath.Join(configDir, "metrics.yaml")
	if mKV, err := parseYAML(metricsPath); err == nil {
		cfg.Metrics.Port = getIntWithEnv("METRICS_PORT", mKV, "port", 9102)
	} else {
		cfg.Metrics.Port = getEnvInt("METRICS_PORT", 9102)
	}

	return cfg
}

// parseYAML — парсит простые YAML файлы без глубокой вложенности
// Формат: key: value (плоский) либо section: \n  key: value
func parseYAML(path string) (map[string]map[string]string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	result := map[string]map[string]string{}
	section := ""

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasSuffix(line, ":") && !strings.Contains(line, " ") {
			section = strings.TrimSuffix(line, ":")
			if result[section] == nil {
				result[section] = map[string]string{}
			}
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		val = strings.Trim(val, `"'`)

		if section != "" {
			if result[section] == nil {
				result[section] = map[string]string{}
			}
			result[section][key] = val
		} else {
			if result[""] == nil {
				result[""] = map[string]string{}
			}
			result[""][key] = val
		}
	}

	return result, sc.Err()
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getStrWithEnv(envKey string, yaml map[string]map[string]string, key, def string) string {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		return v
	}
	if val, ok := yaml[""][key]; ok && val != "" {
		return val
	}
	return def
}

func getIntWithEnv(envKey string, yaml map[string]map[string]string, key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	if val, ok := yaml[""][key]; ok && val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return def
}

// DSN возвращает строку подключения к БД
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// AMQPURL возвращает URL подключения к RabbitMQ
func (c MQConfig) AMQPURL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%d%s",
		c.User, c.Password, c.Host, c.Port, c.VHost,
	)
}
