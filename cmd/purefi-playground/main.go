// purefi-playground 命令行：构建、签名、验证 PureFi Rule V5 载荷，调用合约并启动 Playground 服务。
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/purefi/playground-sdk-go/client"
	"github.com/purefi/playground-sdk-go/config"
	"github.com/purefi/playground-sdk-go/services"
)

var (
	// 全局参数
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "purefi-playground",
	Short: "PureFi Rule V5 payload playground",
	Long: `Build, sign and verify PureFi Rule V5 payloads.

The payload is derived from a package type and form fields, signed as EIP-712
typed data (local key or custom signer backend), and submitted to the PureFi
issuer. The returned package can be passed to a contract call.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = buildLogger(cfg.Logging, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func buildLogger(lc config.LoggingConfig, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if strings.EqualFold(lc.Format, "console") {
		zc = zap.NewDevelopmentConfig()
	}
	level := zapcore.InfoLevel
	if lc.Level != "" {
		if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
			return nil, err
		}
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	// 命令输出走 stdout，日志走 stderr
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}

func sdkLogger() client.Logger {
	return client.NewZapLogger(logger)
}

func newServices() (*services.Services, error) {
	return services.New(services.Config{App: cfg, Logger: sdkLogger()})
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "purefi.yaml", "config file (missing file uses defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(payloadCmd, signCmd, verifyCmd, contractCmd, chainsCmd, serveCmd, walletCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
