package config

import (
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Account  AccountConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Exchange ExchangeConfig
	Bgm      BgmConfig
	Daemon   DaemonConfig
	Trading  TradingConfig
}

type AccountConfig struct {
	Name string
}

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	TimeZone    string
	TablePrefix string `mapstructure:"table_prefix"`
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type ExchangeConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
}

type BgmConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type DaemonConfig struct {
	TickSeconds int `mapstructure:"tick_seconds"`
	// 熔断: 滑动窗口内可容忍的错误数与窗口长度 (分钟)
	ErrorToleranceCount         int `mapstructure:"error_tolerance_count"`
	ErrorTolerancePeriodMinutes int `mapstructure:"error_tolerance_period_minutes"`
	// 每轮从慢速集合中抽样处理的角色数
	SlowSampleSize int `mapstructure:"slow_sample_size"`
}

type TradingConfig struct {
	// InternalRate 把股息率折算为资本价值的假定收益率
	InternalRate float64 `mapstructure:"internal_rate"`
	// BidAmount 常驻补货买单数量
	BidAmount int `mapstructure:"bid_amount"`
	// FastSeller 探测的默认价格区间
	FastSellerLow  float64 `mapstructure:"fast_seller_low"`
	FastSellerHigh float64 `mapstructure:"fast_seller_high"`
}

func LoadConfig() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")        // 在当前目录中查找配置
	viper.AddConfigPath("./config") // 在 config 目录中查找配置

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("exchange.base_url", "https://tinygrail.com/api/")
	viper.SetDefault("exchange.timeout_seconds", 10)
	viper.SetDefault("bgm.base_url", "https://bgm.tv")
	viper.SetDefault("daemon.tick_seconds", 20)
	viper.SetDefault("daemon.error_tolerance_count", 5)
	viper.SetDefault("daemon.error_tolerance_period_minutes", 5)
	viper.SetDefault("daemon.slow_sample_size", 3)
	viper.SetDefault("trading.internal_rate", 0.1)
	viper.SetDefault("trading.bid_amount", 100)
	viper.SetDefault("trading.fast_seller_low", 10)
	viper.SetDefault("trading.fast_seller_high", 100000)

	if err := viper.ReadInConfig(); err != nil {
		logrus.Warnf("Error reading config file, %s", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		logrus.Fatalf("Unable to decode into struct, %v", err)
	}

	return &config
}
