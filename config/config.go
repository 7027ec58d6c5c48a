package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	OSS          OSSConfig          `mapstructure:"oss"`
	OAuth        OAuthConfig        `mapstructure:"oauth"`
	Email        EmailConfig        `mapstructure:"email"`
	Queue        QueueConfig        `mapstructure:"queue"`
	CORS         CORSConfig         `mapstructure:"cors"`
	Billing      BillingConfig      `mapstructure:"billing"`
	PayPal       PayPalConfig       `mapstructure:"paypal"`
	LemonSqueezy LemonSqueezyConfig `mapstructure:"lemonsqueezy"`
	Keepz        KeepzConfig        `mapstructure:"keepz"`
	OpenAI       OpenAIConfig       `mapstructure:"openai"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	BucketName      string `mapstructure:"bucket_name"`
	CDNDomain       string `mapstructure:"cdn_domain"`
}

type OAuthConfig struct {
	Google GoogleOAuthConfig `mapstructure:"google"`
}

type GoogleOAuthConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURI  string `mapstructure:"redirect_uri"`
}

type EmailConfig struct {
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type QueueConfig struct {
	AnalysisQueue string `mapstructure:"analysis_queue"`
	MaxWorkers    int    `mapstructure:"max_workers"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// BillingConfig 订阅计费配置
type BillingConfig struct {
	Plans             map[string]PlanConfig `mapstructure:"plans"`
	RefundWindowHours int                   `mapstructure:"refund_window_hours"`
	Currency          string                `mapstructure:"currency"`
	InvoicePrefix     string                `mapstructure:"invoice_prefix"`
}

// PlanConfig 单个套餐在各支付渠道的标识与价格
type PlanConfig struct {
	PayPalPlanID   string  `mapstructure:"paypal_plan_id"`
	LemonVariantID string  `mapstructure:"lemon_variant_id"`
	KeepzProductID string  `mapstructure:"keepz_product_id"`
	Price          float64 `mapstructure:"price"`
	MonthlyReplies int     `mapstructure:"monthly_replies"`
}

type PayPalConfig struct {
	ClientID  string `mapstructure:"client_id"`
	Secret    string `mapstructure:"secret"`
	BaseURL   string `mapstructure:"base_url"`
	WebhookID string `mapstructure:"webhook_id"`
	ReturnURL string `mapstructure:"return_url"`
	CancelURL string `mapstructure:"cancel_url"`
}

type LemonSqueezyConfig struct {
	APIKey        string `mapstructure:"api_key"`
	StoreID       string `mapstructure:"store_id"`
	BaseURL       string `mapstructure:"base_url"`
	SigningSecret string `mapstructure:"signing_secret"`
	RedirectURL   string `mapstructure:"redirect_url"`
}

type KeepzConfig struct {
	MerchantID      string `mapstructure:"merchant_id"`
	BaseURL         string `mapstructure:"base_url"`
	VendorPublicKey string `mapstructure:"vendor_public_key"` // base64 DER
	PrivateKey      string `mapstructure:"private_key"`       // PEM
	CallbackURL     string `mapstructure:"callback_url"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

func Load(configPath string) (*Config, error) {
	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	// 检查 config.local.yaml 是否存在
	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	// 环境变量覆盖
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 启动时一次性校验计费配置，避免到处理请求时才发现配置缺失
func (c *Config) Validate() error {
	if len(c.Billing.Plans) == 0 {
		return fmt.Errorf("billing.plans is empty")
	}
	for name, plan := range c.Billing.Plans {
		if plan.Price <= 0 {
			return fmt.Errorf("billing.plans.%s: price must be positive", name)
		}
	}
	if c.Billing.RefundWindowHours <= 0 {
		c.Billing.RefundWindowHours = 48
	}
	if c.Billing.Currency == "" {
		c.Billing.Currency = "USD"
	}
	if c.Billing.InvoicePrefix == "" {
		c.Billing.InvoicePrefix = "RH"
	}
	return nil
}
