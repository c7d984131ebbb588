package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if seconds, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*d = Duration(time.Duration(seconds) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// GlobalConfig 描述进程级运行参数：监听端口、日志与各类外部调用超时。
type GlobalConfig struct {
	ListenPort      int      `mapstructure:"ListenPort"`
	LogLevel        string   `mapstructure:"LogLevel"`
	LogFilePath     string   `mapstructure:"LogFilePath"`
	LogMaxSize      int      `mapstructure:"LogMaxSize"`
	LogMaxBackups   int      `mapstructure:"LogMaxBackups"`
	LogCompress     bool     `mapstructure:"LogCompress"`
	ListingTimeout  Duration `mapstructure:"ListingTimeout"`
	IdentityTimeout Duration `mapstructure:"IdentityTimeout"`
}

// LocalConfig 对应 "[data] path" 目录引用，Root 为服务端数据目录。
type LocalConfig struct {
	Enabled bool   `mapstructure:"Enabled"`
	Root    string `mapstructure:"Root"`
}

// BucketConfig 对应 "[s3:bucket] path" 目录引用，兼容任意 S3 协议对象存储。
type BucketConfig struct {
	Enabled         bool   `mapstructure:"Enabled"`
	Endpoint        string `mapstructure:"Endpoint"`
	PublicHost      string `mapstructure:"PublicHost"`
	AccessKeyID     string `mapstructure:"AccessKeyID"`
	SecretAccessKey string `mapstructure:"SecretAccessKey"`
	Region          string `mapstructure:"Region"`
	UseSSL          bool   `mapstructure:"UseSSL"`
}

// CloudProxyConfig 对应 "[forgevtt] path" 目录引用，即云端资源代理。
type CloudProxyConfig struct {
	Enabled        bool     `mapstructure:"Enabled"`
	APIBase        string   `mapstructure:"APIBase"`
	AssetsHost     string   `mapstructure:"AssetsHost"`
	APIKey         string   `mapstructure:"APIKey"`
	QPS            float64  `mapstructure:"QPS"`
	RequestTimeout Duration `mapstructure:"RequestTimeout"`
	BundlePrefixes []string `mapstructure:"BundlePrefixes"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global     GlobalConfig     `mapstructure:",squash"`
	Local      LocalConfig      `mapstructure:"Local"`
	Bucket     BucketConfig     `mapstructure:"Bucket"`
	CloudProxy CloudProxyConfig `mapstructure:"CloudProxy"`
}

// EndpointHost 返回拼接 bucket URL 的主机名：优先 PublicHost，否则为去掉端口与协议的 Endpoint。
func (b BucketConfig) EndpointHost() string {
	if host := strings.TrimSpace(b.PublicHost); host != "" {
		return strings.Trim(host, "/")
	}
	endpoint := strings.TrimSpace(b.Endpoint)
	if strings.Contains(endpoint, "://") {
		if parsed, err := url.Parse(endpoint); err == nil {
			endpoint = parsed.Host
		}
	}
	if host, _, err := net.SplitHostPort(endpoint); err == nil {
		return host
	}
	return endpoint
}

// EnabledBackends 返回已启用后端的名称，供启动日志输出。
func (c *Config) EnabledBackends() []string {
	var names []string
	if c.Local.Enabled {
		names = append(names, "local")
	}
	if c.Bucket.Enabled {
		names = append(names, "bucket")
	}
	if c.CloudProxy.Enabled {
		names = append(names, "cloud-proxy")
	}
	return names
}
