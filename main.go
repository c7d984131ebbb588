package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/asset-locator/internal/backend"
	"github.com/any-hub/asset-locator/internal/config"
	"github.com/any-hub/asset-locator/internal/locator"
	"github.com/any-hub/asset-locator/internal/logging"
	"github.com/any-hub/asset-locator/internal/server"
	"github.com/any-hub/asset-locator/internal/server/routes"
	"github.com/any-hub/asset-locator/internal/storage"
	"github.com/any-hub/asset-locator/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["backends"] = cfg.EnabledBackends()
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// 启动顺序：配置 → 后端适配器 → 定位服务（持有会话缓存）→ Fiber server。
	svc, err := buildService(cfg, logger)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化定位服务失败: %v\n", err)
		return 1
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["backends"] = cfg.EnabledBackends()
	fields["listen_port"] = cfg.Global.ListenPort
	fields["session"] = svc.CacheStats().Session
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	app, err := buildApp(cfg, svc, logger)
	if err != nil {
		fmt.Fprintf(stdErr, "构建 HTTP 服务失败: %v\n", err)
		return 1
	}

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   cfg.Global.ListenPort,
	}).Info("Fiber 服务启动")

	if err := app.Listen(fmt.Sprintf(":%d", cfg.Global.ListenPort)); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// buildService 根据配置装配后端适配器与定位服务。
func buildService(cfg *config.Config, logger *logrus.Logger) (*locator.Service, error) {
	router, proxy, err := storage.NewRouter(cfg, nil)
	if err != nil {
		return nil, err
	}

	opts := locator.Options{
		Lister:          router,
		Uploader:        router,
		Logger:          logger,
		ListingTimeout:  cfg.Global.ListingTimeout.DurationValue(),
		IdentityTimeout: cfg.Global.IdentityTimeout.DurationValue(),
	}
	if cfg.Bucket.Enabled {
		opts.BucketEndpointHost = cfg.Bucket.EndpointHost()
	}
	if proxy != nil {
		opts.Identity = proxy
		opts.AssetsHost = cfg.CloudProxy.AssetsHost
		opts.Bundles = backend.NewPrefixBundleDetector(cfg.CloudProxy.BundlePrefixes)
	}
	return locator.New(opts)
}

// buildApp 创建 Fiber 应用并挂载 /api 与 /-/ 诊断路由。
func buildApp(cfg *config.Config, svc *locator.Service, logger *logrus.Logger) (*fiber.App, error) {
	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		Locator:    svc,
		ListenPort: cfg.Global.ListenPort,
	})
	if err != nil {
		return nil, err
	}
	routes.RegisterDiagnosticsRoutes(app, svc, logger)
	return app, nil
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("asset-locator", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 ASSET_LOCATOR_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("ASSET_LOCATOR_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}, nil
}
