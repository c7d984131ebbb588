package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if g.ListingTimeout.DurationValue() <= 0 {
		return newFieldError("Global.ListingTimeout", "必须大于 0")
	}
	if g.IdentityTimeout.DurationValue() <= 0 {
		return newFieldError("Global.IdentityTimeout", "必须大于 0")
	}

	if !c.Local.Enabled && !c.Bucket.Enabled && !c.CloudProxy.Enabled {
		return errors.New("至少需要启用一个存储后端 (Local/Bucket/CloudProxy)")
	}

	if c.Local.Enabled && strings.TrimSpace(c.Local.Root) == "" {
		return newFieldError(sectionField("Local", "Root"), "不能为空")
	}

	if c.Bucket.Enabled {
		if err := validateHost(c.Bucket.Endpoint); err != nil {
			return fmt.Errorf("%s: %w", sectionField("Bucket", "Endpoint"), err)
		}
		if c.Bucket.PublicHost != "" {
			if err := validateHost(c.Bucket.PublicHost); err != nil {
				return fmt.Errorf("%s: %w", sectionField("Bucket", "PublicHost"), err)
			}
		}
		if (c.Bucket.AccessKeyID == "") != (c.Bucket.SecretAccessKey == "") {
			return newFieldError(sectionField("Bucket", "AccessKeyID/SecretAccessKey"), "必须同时提供或同时留空")
		}
	}

	if c.CloudProxy.Enabled {
		if err := validateUpstream(c.CloudProxy.APIBase); err != nil {
			return fmt.Errorf("%s: %w", sectionField("CloudProxy", "APIBase"), err)
		}
		if err := validateHost(c.CloudProxy.AssetsHost); err != nil {
			return fmt.Errorf("%s: %w", sectionField("CloudProxy", "AssetsHost"), err)
		}
		if c.CloudProxy.QPS < 0 {
			return newFieldError(sectionField("CloudProxy", "QPS"), "不能为负数")
		}
		if c.CloudProxy.RequestTimeout.DurationValue() < 0 {
			return newFieldError(sectionField("CloudProxy", "RequestTimeout"), "不能为负数")
		}
	}

	return nil
}

// validateHost 要求形如 host 或 host:port 的裸主机名（Endpoint 允许带端口）。
func validateHost(host string) error {
	if host == "" {
		return errors.New("不能为空")
	}
	if strings.Contains(host, "/") {
		return errors.New("不允许包含路径或协议头")
	}
	if strings.Contains(host, " ") {
		return errors.New("不允许包含空格")
	}
	return nil
}

func validateUpstream(raw string) error {
	if raw == "" {
		return errors.New("缺少 API 地址")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("缺少 Host: %s", raw)
	}
	return nil
}
