package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deadlockdevs/warden/automod/config"
	"github.com/deadlockdevs/warden/automod/rules"
	"github.com/deadlockdevs/warden/util/cliutil"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
	_ "go.uber.org/automaxprocs"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "warden",
		Usage:   "automod and moderation daemon for a discord community",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity level (eg: warn, info, debug)",
			Value:   "info",
			EnvVars: []string{"WARDEN_LOG_LEVEL", "LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "log output format: json or text",
			Value:   "json",
			EnvVars: []string{"WARDEN_LOG_FORMAT"},
		},
		&cli.StringFlag{
			Name:    "settings-path",
			Usage:   "path to the automod settings JSON file",
			Value:   config.DefaultPath,
			EnvVars: []string{"WARDEN_SETTINGS_PATH"},
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
		checkConfigCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "discord-token",
			Usage:    "bot token for the discord gateway and API",
			Required: true,
			EnvVars:  []string{"DISCORD_TOKEN", "TOKEN"},
		},
		&cli.StringFlag{
			Name:    "data-dir",
			Usage:   "directory for warns and mutes files, when neither redis nor a database is configured",
			Value:   "data",
			EnvVars: []string{"WARDEN_DATA_DIR"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL, for stores and counters",
			EnvVars: []string{"WARDEN_REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "database for warns and mutes (sqlite or postgres)",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.IntFlag{
			Name:    "max-db-connections",
			EnvVars: []string{"MAX_DB_CONNECTIONS"},
			Value:   20,
		},
		&cli.StringFlag{
			Name:    "owner-id",
			Usage:   "user ID which may always run moderation commands",
			EnvVars: []string{"WARDEN_OWNER_ID", "PANIC_CONTROLLER_ID"},
		},
		&cli.StringSliceFlag{
			Name:    "staff-role-ids",
			Usage:   "role IDs required (in addition to permissions) for moderation commands",
			EnvVars: []string{"WARDEN_STAFF_ROLE_IDS", "STAFF_ROLE_IDS"},
		},
		&cli.StringFlag{
			Name:    "log-channel-id",
			Usage:   "channel for audit entries, when the settings file names none",
			EnvVars: []string{"WARDEN_LOG_CHANNEL_ID"},
		},
		&cli.StringFlag{
			Name:    "slack-webhook-url",
			Usage:   "also send audit entries to this slack incoming webhook",
			EnvVars: []string{"SLACK_WEBHOOK_URL"},
		},
		&cli.IntFlag{
			Name:    "auto-removal-quota",
			Usage:   "max automated kicks and bans per guild per day (0 for no limit)",
			Value:   0,
			EnvVars: []string{"WARDEN_AUTO_REMOVAL_QUOTA"},
		},
		&cli.Float64Flag{
			Name:    "discord-rate-limit",
			Usage:   "max moderation API requests per second to discord",
			Value:   10,
			EnvVars: []string{"WARDEN_DISCORD_RATE_LIMIT"},
		},
		&cli.DurationFlag{
			Name:    "user-rate-window",
			Usage:   "sliding window for per-user command rate limiting",
			Value:   15 * time.Second,
			EnvVars: []string{"WARDEN_USER_RATE_WINDOW"},
		},
		&cli.IntFlag{
			Name:    "user-rate-max",
			Value:   8,
			EnvVars: []string{"WARDEN_USER_RATE_MAX"},
		},
		&cli.DurationFlag{
			Name:    "command-rate-window",
			Usage:   "sliding window for per-command rate limiting",
			Value:   8 * time.Second,
			EnvVars: []string{"WARDEN_COMMAND_RATE_WINDOW"},
		},
		&cli.IntFlag{
			Name:    "command-rate-max",
			Value:   4,
			EnvVars: []string{"WARDEN_COMMAND_RATE_MAX"},
		},
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for the admin HTTP API",
			Value:   ":3999",
			EnvVars: []string{"WARDEN_BIND"},
		},
		&cli.StringFlag{
			Name:    "admin-password",
			Usage:   "bearer token required by the admin HTTP API (API is unauthenticated if empty)",
			EnvVars: []string{"WARDEN_ADMIN_PASSWORD"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3998",
			EnvVars: []string{"WARDEN_METRICS_LISTEN"},
		},
	},
	Action: func(cctx *cli.Context) error {
		logger, err := cliutil.SetupSlog(cctx.String("log-level"), cctx.String("log-format"))
		if err != nil {
			return err
		}

		shutdownOTEL, err := configOTEL(cctx.Context, "warden")
		if err != nil {
			return err
		}
		defer shutdownOTEL()

		srv, err := NewServer(Config{
			Logger:           logger,
			DiscordToken:     cctx.String("discord-token"),
			SettingsPath:     cctx.String("settings-path"),
			DataDir:          cctx.String("data-dir"),
			RedisURL:         cctx.String("redis-url"),
			DatabaseURL:      cctx.String("database-url"),
			MaxDBConnections: cctx.Int("max-db-connections"),
			OwnerID:          cctx.String("owner-id"),
			StaffRoleIDs:     cctx.StringSlice("staff-role-ids"),
			LogChannelID:     cctx.String("log-channel-id"),
			SlackWebhookURL:  cctx.String("slack-webhook-url"),
			AutoRemovalQuota: cctx.Int("auto-removal-quota"),
			DiscordRateLimit: cctx.Float64("discord-rate-limit"),
			UserRateWindow:   cctx.Duration("user-rate-window"),
			UserRateMax:      cctx.Int("user-rate-max"),
			CmdRateWindow:    cctx.Duration("command-rate-window"),
			CmdRateMax:       cctx.Int("command-rate-max"),
			Bind:             cctx.String("bind"),
			AdminPassword:    cctx.String("admin-password"),
			MetricsListen:    cctx.String("metrics-listen"),
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cctx.Context, syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("failed to run warden service: %w", err)
		}
		return nil
	},
}

var checkConfigCmd = &cli.Command{
	Name:      "check-config",
	Usage:     "validate an automod settings file, without creating or modifying it",
	ArgsUsage: "[<path>]",
	Action: func(cctx *cli.Context) error {
		path := cctx.String("settings-path")
		if cctx.Args().Len() > 0 {
			path = cctx.Args().First()
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		s, err := config.Parse(data)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		problems := config.Validate(s, rules.DefaultRules())
		for _, p := range problems {
			fmt.Fprintf(cctx.App.Writer, "%s: %s\n", path, p)
		}
		if len(problems) > 0 {
			return fmt.Errorf("%d problems found", len(problems))
		}
		fmt.Fprintf(cctx.App.Writer, "%s: ok (%d rules)\n", path, len(s.Rules))
		return nil
	},
}

// Reloads automod settings on SIGHUP, until the context is cancelled.
func runReloadOnHangup(ctx context.Context, reload func()) error {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGHUP)
	defer signal.Stop(sigs)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sigs:
			reload()
		}
	}
}
