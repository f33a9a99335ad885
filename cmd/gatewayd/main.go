package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/gateway-os/gatewayd/internal/config"
)

func main() {
	app := &cli.App{
		Name:  "gatewayd",
		Usage: "cross-chain value transfer settlement daemon",
		Flags: []cli.Flag{
			config.Datadir,
			config.LogLevel,
			config.DbType,
			config.LiveStoreType,
			config.RedisUrl,
			config.RedisTxNumOfRetries,
			config.SchedulerType,
			config.ChainClockType,
			config.EsploraURL,
			config.ChainDomain,
			config.WalletContract,
			config.WithdrawalDelay,
			config.BurnSigner,
			config.FeeRecipient,
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.LoadConfig(c)
	if err != nil {
		return fmt.Errorf("invalid config: %s", err)
	}

	log.SetLevel(log.Level(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %s", err)
	}

	log.Infof("gatewayd config: %s", cfg)

	svc, err := cfg.AppService()
	if err != nil {
		return fmt.Errorf("failed to create service: %s", err)
	}

	log.Info("starting service...")
	if err := svc.Start(); err != nil {
		return fmt.Errorf("failed to start service: %s", err)
	}

	log.RegisterExitHandler(svc.Stop)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(
		sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGHUP, os.Interrupt,
	)
	<-sigChan

	log.Info("shutting down service...")
	log.Exit(0)
	return nil
}
