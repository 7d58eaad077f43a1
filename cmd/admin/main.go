package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"remix-go/internal/config"
	"remix-go/internal/storage"
)

const (
	exitSuccess = 0
	exitFailed  = 1
	exitError   = 2
)

var configPath string

func main() {
	os.Exit(execute(os.Args[1:]))
}

func execute(args []string) int {
	root := newRootCmd(openDB)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		if errors.Is(err, errInconsistent) {
			return exitFailed
		}
		fmt.Fprintln(os.Stderr, err)
		return exitError
	}
	return exitSuccess
}

func openDB() (*gorm.DB, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("无法加载配置: %w", err)
	}
	db, err := storage.InitDB(cfg.Database)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func newRootCmd(open func() (*gorm.DB, error)) *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "remix-go 运维工具",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("REMIX_CONFIG"), "配置文件路径")

	root.AddCommand(
		newShowGroupCmd(open),
		newShowChatCmd(open),
		newCheckDMCmd(open),
	)
	return root
}
