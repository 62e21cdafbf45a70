package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	ExchangeAPI   ExchangeAPIConfig   `yaml:"exchange_api"`
	ChainObserver ChainObserverConfig `yaml:"chain_observer"`
	Payment       PaymentConfig       `yaml:"payment"`
	WebSocket     WebSocketConfig     `yaml:"websocket"`
	JWT           JWTConfig           `yaml:"jwt"`
}

type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
}

type DatabaseConfig struct {
	Host            string `yaml:"host"`
	Port            string `yaml:"port"`
	User            string `yaml:"user"`
	DBName          string `yaml:"name"`
	Password        string `yaml:"password"`
	SSLMode         string `yaml:"ssl_mode"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	RatesTTL time.Duration `yaml:"rates_ttl"`
}

type ExchangeAPIConfig struct {
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

type ChainObserverConfig struct {
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// PaymentConfig carries the business parameters of the session lifecycle.
// ValidityWindow is how long an unpaid session stays payable; Wallets maps a
// currency code to its receiving address.
type PaymentConfig struct {
	ValidityWindow      time.Duration     `yaml:"validity_window"`
	ExpirySweepInterval time.Duration     `yaml:"expiry_sweep_interval"`
	Wallets             map[string]string `yaml:"wallets"`
}

type WebSocketConfig struct {
	ReadBufferSize  int  `yaml:"read_buffer_size"`
	WriteBufferSize int  `yaml:"write_buffer_size"`
	CheckOrigin     bool `yaml:"check_origin"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
}

func Load() (*Config, error) {
	// .env is optional outside local development
	_ = godotenv.Load()

	configData, err := os.ReadFile("./config.yaml")
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(configData, &config); err != nil {
		return nil, err
	}

	if config.Payment.ValidityWindow <= 0 {
		config.Payment.ValidityWindow = 20 * time.Minute
	}
	if config.Payment.ExpirySweepInterval <= 0 {
		config.Payment.ExpirySweepInterval = 30 * time.Second
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.JWT.Secret = secret
	}

	return &config, nil
}
