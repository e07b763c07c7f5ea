package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 SMS_VALIDATOR_TOKEN_LENGTH
const EnvPrefix = "SMS_VALIDATOR"

// MaxTokenLength Token 最大长度（与数据库字段一致）
const MaxTokenLength = 40

var (
	// ErrInvalidTokenLength Token 长度超出范围
	ErrInvalidTokenLength = errors.New("token_length must be between 1 and 40")
	// ErrInvalidMaxTokenAge 有效期必须为正数
	ErrInvalidMaxTokenAge = errors.New("max_token_age_seconds must be positive")
	// ErrInvalidRetention 保留期必须为正数
	ErrInvalidRetention = errors.New("remove_token_after_seconds must be positive")
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`            // sqlite, postgres, mysql
	Path            string        `mapstructure:"path"`              // sqlite 文件路径
	DSN             string        `mapstructure:"dsn"`               // postgres / mysql 连接串
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大生命周期
	AutoMigrate     bool          `mapstructure:"auto_migrate"`      // 是否自动迁移
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

// ValidatorConfig Token 生命周期配置
type ValidatorConfig struct {
	MaxTokenAgeSeconds      int    `mapstructure:"max_token_age_seconds"`
	RemoveTokenAfterSeconds int    `mapstructure:"remove_token_after_seconds"`
	TokenLength             int    `mapstructure:"token_length"`
	UniversalToken          string `mapstructure:"universal_token"` // 为空表示禁用
	ConsumeOnSuccess        bool   `mapstructure:"consume_on_success"`
}

// SMSConfig 短信发送配置
type SMSConfig struct {
	Backend         string        `mapstructure:"backend"` // log, http, redis
	DefaultTemplate string        `mapstructure:"default_template"`
	GatewayURL      string        `mapstructure:"gateway_url"`
	GatewayAPIKey   string        `mapstructure:"gateway_api_key"` // 支持 enc: 前缀的密文
	Timeout         time.Duration `mapstructure:"timeout"`
	QueueKey        string        `mapstructure:"queue_key"`
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Config 应用配置
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Validator ValidatorConfig `mapstructure:"validator"`
	SMS       SMSConfig       `mapstructure:"sms"`
	Redis     RedisConfig     `mapstructure:"redis"`
}

// DefaultValidatorConfig 默认 Token 配置
func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		MaxTokenAgeSeconds:      60 * 60,           // 1 小时
		RemoveTokenAfterSeconds: 60 * 60 * 24 * 30, // 30 天
		TokenLength:             6,
	}
}

// MaxTokenAge Token 有效期
func (c ValidatorConfig) MaxTokenAge() time.Duration {
	return time.Duration(c.MaxTokenAgeSeconds) * time.Second
}

// RemoveTokenAfter Token 保留期
func (c ValidatorConfig) RemoveTokenAfter() time.Duration {
	return time.Duration(c.RemoveTokenAfterSeconds) * time.Second
}

// Validate 校验 Token 配置
func (c ValidatorConfig) Validate() error {
	if c.TokenLength < 1 || c.TokenLength > MaxTokenLength {
		return ErrInvalidTokenLength
	}
	if c.MaxTokenAgeSeconds <= 0 {
		return ErrInvalidMaxTokenAge
	}
	if c.RemoveTokenAfterSeconds <= 0 {
		return ErrInvalidRetention
	}
	return nil
}

// setDefaults 注册默认值，同时让 AutomaticEnv 能识别所有键
func setDefaults(v *viper.Viper) {
	validator := DefaultValidatorConfig()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/sms_validator.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("validator.max_token_age_seconds", validator.MaxTokenAgeSeconds)
	v.SetDefault("validator.remove_token_after_seconds", validator.RemoveTokenAfterSeconds)
	v.SetDefault("validator.token_length", validator.TokenLength)
	v.SetDefault("validator.universal_token", "")
	v.SetDefault("validator.consume_on_success", false)

	v.SetDefault("sms.backend", "log")
	v.SetDefault("sms.default_template", "token-validation")
	v.SetDefault("sms.gateway_url", "")
	v.SetDefault("sms.gateway_api_key", "")
	v.SetDefault("sms.timeout", 5*time.Second)
	v.SetDefault("sms.queue_key", "sms:outbound")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
}

// bindValidatorEnv Token 配置沿用不带分组的变量名，例如 SMS_VALIDATOR_MAX_TOKEN_AGE_SECONDS
func bindValidatorEnv(v *viper.Viper) {
	for _, key := range []string{
		"max_token_age_seconds",
		"remove_token_after_seconds",
		"token_length",
		"universal_token",
		"consume_on_success",
	} {
		_ = v.BindEnv("validator."+key, EnvPrefix+"_"+strings.ToUpper(key))
	}
}

// LoadConfig 加载配置
// 优先级：环境变量 > 配置文件 > 默认值；.env 文件会先被加载到环境变量
func LoadConfig(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindValidatorEnv(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validator.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
