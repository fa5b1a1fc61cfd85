package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"batch_transfer/internal/app/port"
	"batch_transfer/internal/infrastructure/configloader"
	"batch_transfer/internal/pkg/logger"

	"github.com/joho/godotenv"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type app struct {
	configPath string
	logLevel   string

	cfg *configloader.Config
	log port.Logger
	zap *zap.Logger
	out io.Writer
}

func main() {
	a := &app{out: os.Stdout}
	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "batchtransfer",
		Short:         "Delegated batch token transfers for Solana, Tron and EVM networks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to config file (default $CONFIG_PATH or config/config.yml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override")

	root.AddCommand(
		newRunCmd(a),
		newPendingCmd(a),
		newResetPendingCmd(a),
		newReplayJournalCmd(a),
	)
	return root
}

func (a *app) init() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	path := a.configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config/config.yml"
	}
	cfg, err := configloader.Load(path)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.Logging.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	a.log = logger.NewLogrusAdapter(os.Stderr, level)

	zl, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("init zap: %w", err)
	}
	a.zap = zl
	return nil
}

func (a *app) printJSON(v any) error {
	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
