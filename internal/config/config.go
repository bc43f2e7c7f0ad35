package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config определяет общую структуру конфигурации всего приложения.
type Config struct {
	HTTPServer   `yaml:"http"`       // Конфигурация основного HTTP сервера
	GRPCServer   `yaml:"grpc"`       // Конфигурация gRPC сервера (лента заказов кухни)
	Metrics      `yaml:"metrics"`    // Конфигурация сервера метрик Prometheus
	Database     `yaml:"database"`   // Конфигурация основной базы данных
	Redis        `yaml:"redis"`      // Кеш каталога
	Kafka        `yaml:"kafka"`      // Брокер для доменных событий
	Auth         `yaml:"auth"`       // Конфигурация аутентификации и JWT
	Logger       `yaml:"logger"`     // Конфигурация логгера
	Hasher       `yaml:"hasher"`     // Конфигурация хэшера паролей
	YooKassa     `yaml:"yookassa"`   // Платёжный шлюз
	Shop         `yaml:"shop"`       // Бизнес-настройки магазина
	Scheduler    `yaml:"scheduler"`  // Расписание фоновых задач
	RateLimit    `yaml:"rate_limit"` // Ограничение частоты запросов к /auth
	TestDatabase Database            `yaml:"test_database"` // Конфигурация тестовой базы данных (используется только в тестах)
}

// HTTPServer содержит настройки для основного HTTP сервера.
type HTTPServer struct {
	// Port - порт, на котором будет слушать HTTP сервер.
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	// TrustedProxies - адреса прокси, которым gin доверяет X-Forwarded-For.
	// Важно для проверки IP источника уведомлений ЮKassa за балансировщиком.
	TrustedProxies []string `yaml:"trusted_proxies" env:"HTTP_TRUSTED_PROXIES" env-separator:","`
}

// GRPCServer содержит настройки для gRPC сервера.
type GRPCServer struct {
	Port string `yaml:"port" env:"GRPC_PORT" env-default:"3000"`
}

// Metrics содержит настройки для сервера метрик Prometheus.
type Metrics struct {
	// Port - порт, на котором будет слушать сервер метрик (/metrics).
	Port string `yaml:"port" env:"METRICS_PORT" env-default:"9000"`
}

// Database содержит настройки для подключения к базе данных PostgreSQL.
type Database struct {
	Host     string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"DB_USER" env-default:"user"`
	Password string `yaml:"password" env:"DB_PASSWORD" env-default:"password"`
	Name     string `yaml:"name" env:"DB_NAME" env-default:"pizzeria_db"`
	SSLMode  string `yaml:"ssl_mode" env:"DB_SSL_MODE" env-default:"disable"`
}

// Redis - кеш каталога. Пустой адрес отключает кеширование.
type Redis struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	TTL      time.Duration `yaml:"catalog_ttl" env:"REDIS_CATALOG_TTL" env-default:"5m"`
}

// Kafka - брокеры через запятую. Пустое значение отключает ретрансляцию outbox.
type Kafka struct {
	Brokers     string `yaml:"brokers" env:"KAFKA_BROKERS"`
	TopicPrefix string `yaml:"topic_prefix" env:"KAFKA_TOPIC_PREFIX" env-default:"pizzeria."`
}

type Auth struct {
	JWTSecret   string        `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	JWTttl      time.Duration `yaml:"jwt_ttl_hours" env:"JWT_TTL_HOURS" env-default:"24h"`
	AdminEmails []string      `yaml:"admin_emails" env:"AUTH_ADMIN_EMAILS" env-separator:","`
}

// Logger содержит настройки для логгера приложения.
type Logger struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

// Hasher содержит настройки для хэширования паролей.
type Hasher struct {
	// BcryptCost - определяет вычислительную сложность (стоимость) хеширования bcrypt.
	// Чем выше значение, тем безопаснее, но медленнее.
	BcryptCost int `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"10"`
}

// YooKassa содержит реквизиты магазина в ЮKassa и настройки приёма уведомлений.
type YooKassa struct {
	ShopID    string        `yaml:"shop_id" env:"YOOKASSA_SHOP_ID"`
	SecretKey string        `yaml:"secret_key" env:"YOOKASSA_SECRET_KEY"`
	BaseURL   string        `yaml:"base_url" env:"YOOKASSA_BASE_URL" env-default:"https://api.yookassa.ru"`
	ReturnURL string        `yaml:"return_url" env:"YOOKASSA_RETURN_URL" env-default:"http://localhost:5173/orders"`
	Timeout   time.Duration `yaml:"timeout" env:"YOOKASSA_TIMEOUT" env-default:"10s"`
	// AllowedIPs - адреса и подсети, с которых ЮKassa присылает уведомления.
	AllowedIPs []string `yaml:"allowed_ips" env:"YOOKASSA_ALLOWED_IPS" env-separator:"," env-default:"185.71.76.0/27,185.71.77.0/27,77.75.153.0/25,77.75.156.11,77.75.156.35,77.75.154.128/25,2a02:5180::/32"`
	// VerifyWithAPI - перечитывать платёж через API вместо доверия телу уведомления.
	VerifyWithAPI bool `yaml:"verify_with_api" env:"YOOKASSA_VERIFY_WITH_API" env-default:"true"`
}

// Shop - бизнес-правила витрины.
type Shop struct {
	MinOrderAmount   string        `yaml:"min_order_amount" env:"SHOP_MIN_ORDER_AMOUNT" env-default:"500.00"`
	MaxItemQuantity  int           `yaml:"max_item_quantity" env:"SHOP_MAX_ITEM_QUANTITY" env-default:"20"`
	DeliveryLeadTime time.Duration `yaml:"delivery_lead_time" env:"SHOP_DELIVERY_LEAD_TIME" env-default:"45m"`
	UnpaidOrderTTL   time.Duration `yaml:"unpaid_order_ttl" env:"SHOP_UNPAID_ORDER_TTL" env-default:"1h"`
}

// Scheduler - cron-выражения фоновых задач (формат robfig/cron).
type Scheduler struct {
	OutboxRelay       string `yaml:"outbox_relay" env:"SCHEDULER_OUTBOX_RELAY" env-default:"@every 5s"`
	ReconcilePayments string `yaml:"reconcile_payments" env:"SCHEDULER_RECONCILE_PAYMENTS" env-default:"@every 1m"`
	OutboxBatchSize   int    `yaml:"outbox_batch_size" env:"SCHEDULER_OUTBOX_BATCH_SIZE" env-default:"100"`
	ReconcileBatch    int    `yaml:"reconcile_batch_size" env:"SCHEDULER_RECONCILE_BATCH_SIZE" env-default:"50"`
}

// RateLimit - лимит запросов к эндпоинтам аутентификации с одного IP.
type RateLimit struct {
	RPS   float64 `yaml:"rps" env:"RATE_LIMIT_RPS" env-default:"1"`
	Burst int     `yaml:"burst" env:"RATE_LIMIT_BURST" env-default:"5"`
}

// Load загружает конфигурацию приложения.
// Порядок приоритета:
// 1. Переменные окружения (самый высокий приоритет).
// 2. Значения из YAML файла (если найден).
// 3. Значения по умолчанию (env-default).
// Функция паникует, если не удается прочитать обязательные переменные окружения (env-required).
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: .env file not found or error loading it: %v. Relying on existing environment variables.", err)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yml"
	}

	var cfg Config

	if _, err := os.Stat(configPath); err == nil {
		err := cleanenv.ReadConfig(configPath, &cfg)
		if err != nil {
			log.Printf("WARN: Error reading config file '%s': %v. Relying solely on environment variables.", configPath, err)
		} else {
			log.Printf("INFO: Loaded base configuration structure from file: %s", configPath)
		}
	} else if !os.IsNotExist(err) {
		log.Printf("WARN: Error accessing config file '%s': %v. Relying solely on environment variables.", configPath, err)
	} else {
		log.Printf("INFO: Configuration file not found at '%s'. Relying solely on environment variables.", configPath)
	}

	log.Printf("INFO: Reading environment variables (will override YAML values if any)...")
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("FATAL: Error reading environment variables: %v", err)
	}

	log.Printf("INFO: Configuration loaded successfully. Log Level: %s, HTTP Port: %s, gRPC Port: %s, Kafka enabled: %t, Redis enabled: %t",
		cfg.Logger.Level, cfg.HTTPServer.Port, cfg.GRPCServer.Port, cfg.Kafka.Brokers != "", cfg.Redis.Addr != "")

	return &cfg
}

func LoadTestConfig() *Config {
	cfg := Load()

	if host := os.Getenv("TEST_DB_HOST"); host != "" {
		cfg.TestDatabase.Host = host
	}
	if port := os.Getenv("TEST_DB_PORT_HOST"); port != "" { // Порт тестовой БД с хоста (5433), чтобы запускать тесты локально
		cfg.TestDatabase.Port = port
	}
	if user := os.Getenv("TEST_DB_USER"); user != "" {
		cfg.TestDatabase.User = user
	}
	if password := os.Getenv("TEST_DB_PASSWORD"); password != "" {
		cfg.TestDatabase.Password = password
	}
	if name := os.Getenv("TEST_DB_NAME"); name != "" {
		cfg.TestDatabase.Name = name
	}
	if sslMode := os.Getenv("TEST_DB_SSL_MODE"); sslMode != "" {
		cfg.TestDatabase.SSLMode = sslMode
	}

	log.Printf("INFO: Test database configuration loaded. Host: %s, Port: %s, Name: %s",
		cfg.TestDatabase.Host, cfg.TestDatabase.Port, cfg.TestDatabase.Name)

	return cfg
}
