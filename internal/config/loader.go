package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)
	applyBackendDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Local.Enabled {
		absRoot, err := filepath.Abs(cfg.Local.Root)
		if err != nil {
			return nil, fmt.Errorf("无法解析本地数据目录: %w", err)
		}
		cfg.Local.Root = absRoot
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 5000)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("ListingTimeout", "15s")
	v.SetDefault("IdentityTimeout", "10s")
	v.SetDefault("Local.Root", "./data")
	v.SetDefault("Bucket.UseSSL", true)
	v.SetDefault("CloudProxy.QPS", 5)
	v.SetDefault("CloudProxy.RequestTimeout", "30s")
}

func applyGlobalDefaults(g *GlobalConfig) {
	if g.ListenPort == 0 {
		g.ListenPort = 5000
	}
	if g.ListingTimeout.DurationValue() == 0 {
		g.ListingTimeout = Duration(15 * time.Second)
	}
	if g.IdentityTimeout.DurationValue() == 0 {
		g.IdentityTimeout = Duration(10 * time.Second)
	}
}

func applyBackendDefaults(cfg *Config) {
	cfg.Bucket.Endpoint = strings.TrimSpace(cfg.Bucket.Endpoint)
	cfg.CloudProxy.APIBase = strings.TrimRight(strings.TrimSpace(cfg.CloudProxy.APIBase), "/")
	cfg.CloudProxy.AssetsHost = strings.Trim(strings.TrimSpace(cfg.CloudProxy.AssetsHost), "/")
	if cfg.CloudProxy.RequestTimeout.DurationValue() == 0 {
		cfg.CloudProxy.RequestTimeout = Duration(30 * time.Second)
	}
	prefixes := cfg.CloudProxy.BundlePrefixes[:0]
	for _, prefix := range cfg.CloudProxy.BundlePrefixes {
		if trimmed := strings.Trim(strings.TrimSpace(prefix), "/"); trimmed != "" {
			prefixes = append(prefixes, trimmed)
		}
	}
	cfg.CloudProxy.BundlePrefixes = prefixes
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
