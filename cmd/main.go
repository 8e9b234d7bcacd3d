package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/KotFed0t/stock_log/config"
	"github.com/KotFed0t/stock_log/data"
	"github.com/KotFed0t/stock_log/data/repository"
	"github.com/KotFed0t/stock_log/data/session"
	"github.com/KotFed0t/stock_log/internal/externalApi/alphaVantageApi"
	"github.com/KotFed0t/stock_log/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/KotFed0t/stock_log/internal/ledger/xlsxLedger"
	"github.com/KotFed0t/stock_log/internal/reference/xlsxReference"
	"github.com/KotFed0t/stock_log/internal/scheduler"
	"github.com/KotFed0t/stock_log/internal/service/stockLogService"
	"github.com/KotFed0t/stock_log/internal/symbolResolver"
	"github.com/KotFed0t/stock_log/internal/tgbot"
	"github.com/KotFed0t/stock_log/internal/transport/cli"
	"github.com/KotFed0t/stock_log/internal/transport/telegram"
	"github.com/KotFed0t/stock_log/utils"
	"github.com/google/subcommands"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.MustLoad()

	setupLogger(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var journal stockLogService.Journal
	if cfg.Postgres.Enabled {
		pgClient, err := data.NewPostgresClient(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting to the trade journal: %v\n", err)
			return 1
		}
		defer pgClient.Close()

		journal = repository.NewPostgres(pgClient)
	}

	var cloudStorage stockLogService.CloudStorage
	if cfg.GoogleDrive.Enabled {
		googleCloudStorage, err := googleDriveApi.New(ctx, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating google drive client: %v\n", err)
			return 1
		}
		cloudStorage = googleCloudStorage
	}

	loadResolver := func(ctx context.Context) (stockLogService.Resolver, error) {
		referenceTable, err := xlsxReference.Load(ctx, cfg.Reference.FilePath)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", cfg.Reference.FilePath, err)
		}
		return symbolResolver.New(referenceTable), nil
	}

	stockLogSrv := stockLogService.New(
		loadResolver,
		alphaVantageApi.New(cfg),
		xlsxLedger.New(cfg),
		journal,
		cloudStorage,
	)

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	cli.Register(commander, &cli.App{
		Service: stockLogSrv,
		RunBot: func(ctx context.Context) error {
			return runBot(ctx, cfg, stockLogSrv, cloudStorage != nil)
		},
		Out: os.Stdout,
		Err: os.Stderr,
	})

	flag.Parse()
	return int(commander.Execute(ctx))
}

// runBot serves the telegram bot and the backup job until ctx is done.
func runBot(ctx context.Context, cfg *config.Config, stockLogSrv *stockLogService.StockLogService, backupEnabled bool) error {
	if cfg.API.AlphaVantage.ApiKey == "" {
		return errors.New("ALPHA_VANTAGE_API_KEY is required to run the bot")
	}
	if err := stockLogSrv.LoadReference(utils.NewCtxWithRqID(ctx)); err != nil {
		return err
	}

	redisClient, err := data.NewRedisClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	redisSession := session.NewRedisSession(redisClient, cfg.SessionExpiration)

	tgController := telegram.NewController(stockLogSrv, redisSession)

	tgBot, err := tgbot.New(cfg, tgController, redisSession)
	if err != nil {
		return err
	}

	sched, err := scheduler.New()
	if err != nil {
		return err
	}
	if backupEnabled {
		err = sched.NewCrontabJob("ledger backup", stockLogSrv.BackupLedger, cfg.Jobs.LedgerBackupCrontab)
		if err != nil {
			return err
		}
	}
	sched.Start()
	defer sched.Stop()

	tgBot.Start()
	defer tgBot.Stop()

	// Waiting interruption signal
	<-ctx.Done()
	return nil
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	// stdout is reserved for command output
	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
