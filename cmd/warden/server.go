package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/deadlockdevs/warden/automod/commands"
	"github.com/deadlockdevs/warden/automod/config"
	"github.com/deadlockdevs/warden/automod/cooldown"
	"github.com/deadlockdevs/warden/automod/countstore"
	"github.com/deadlockdevs/warden/automod/discord"
	"github.com/deadlockdevs/warden/automod/engine"
	"github.com/deadlockdevs/warden/automod/mutes"
	"github.com/deadlockdevs/warden/automod/mutestore"
	"github.com/deadlockdevs/warden/automod/ratelimit"
	"github.com/deadlockdevs/warden/automod/rules"
	"github.com/deadlockdevs/warden/automod/warnstore"
	"github.com/deadlockdevs/warden/pkg/metrics"
	"github.com/deadlockdevs/warden/util/cliutil"

	"github.com/bwmarrin/discordgo"
	"github.com/carlmjohnson/versioninfo"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	Logger           *slog.Logger
	DiscordToken     string
	SettingsPath     string
	DataDir          string
	RedisURL         string
	DatabaseURL      string
	MaxDBConnections int
	OwnerID          string
	StaffRoleIDs     []string
	LogChannelID     string
	SlackWebhookURL  string
	AutoRemovalQuota int
	DiscordRateLimit float64
	UserRateWindow   time.Duration
	UserRateMax      int
	CmdRateWindow    time.Duration
	CmdRateMax       int
	Bind             string
	AdminPassword    string
	MetricsListen    string
}

type Server struct {
	logger       *slog.Logger
	settingsPath string
	engine       *engine.Engine
	ledger       *mutes.Ledger
	session      *discordgo.Session
	bridge       *discord.Bridge
	admin        *http.Server
	metricsAddr  string
}

// Persistent state backends, picked from configuration: redis if configured, then a SQL database, then local files.
type stores struct {
	warns     warnstore.WarnStore
	mutes     mutestore.MuteStore
	counters  countstore.CountStore
	cooldowns cooldown.Tracker
}

// entries outlive any sensible cooldown setting
const cooldownTTL = time.Hour

func openStores(ctx context.Context, config Config, logger *slog.Logger) (*stores, error) {
	if config.RedisURL != "" {
		// check redis connection before building stores on it
		opt, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis URL: %v", err)
		}
		rdb := redis.NewClient(opt)
		_, err = rdb.Ping(ctx).Result()
		rdb.Close()
		if err != nil {
			return nil, fmt.Errorf("redis ping failed: %v", err)
		}

		warns, err := warnstore.NewRedisWarnStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis warnstore: %v", err)
		}
		muteStore, err := mutestore.NewRedisMuteStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis mutestore: %v", err)
		}
		counters, err := countstore.NewRedisCountStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis countstore: %v", err)
		}
		cooldowns, err := cooldown.NewRedisTracker(config.RedisURL, cooldownTTL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis cooldown tracker: %v", err)
		}
		logger.Info("using redis stores")
		return &stores{warns: warns, mutes: muteStore, counters: counters, cooldowns: cooldowns}, nil
	}

	st := &stores{
		counters:  countstore.NewMemCountStore(),
		cooldowns: cooldown.NewMemTracker(50_000, cooldownTTL),
	}
	if config.DatabaseURL != "" {
		db, err := cliutil.SetupDatabase(config.DatabaseURL, config.MaxDBConnections)
		if err != nil {
			return nil, err
		}
		if st.warns, err = warnstore.NewSQLWarnStore(db); err != nil {
			return nil, fmt.Errorf("initializing sql warnstore: %w", err)
		}
		if st.mutes, err = mutestore.NewSQLMuteStore(db); err != nil {
			return nil, fmt.Errorf("initializing sql mutestore: %w", err)
		}
		logger.Info("using database stores")
		return st, nil
	}

	st.warns = warnstore.NewFileWarnStore(filepath.Join(config.DataDir, "warns.json"), logger)
	st.mutes = mutestore.NewFileMuteStore(filepath.Join(config.DataDir, "mutes.json"), logger)
	logger.Info("using file stores", "dir", config.DataDir)
	return st, nil
}

func NewServer(config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	st, err := openStores(context.Background(), config, logger)
	if err != nil {
		return nil, err
	}

	session, err := discordgo.New("Bot " + config.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	session.Identify.Intents = discord.Intents
	platform := discord.NewPlatform(session, config.DiscordRateLimit, 5)

	ledger := mutes.NewLedger(st.mutes, platform, logger.With("component", "mutes"))

	notifiers := []engine.Notifier{
		&engine.LogNotifier{Logger: logger.With("component", "audit")},
		&discord.ChannelNotifier{Session: session, DefaultChannel: config.LogChannelID},
	}
	if config.SlackWebhookURL != "" {
		notifiers = append(notifiers, &engine.SlackNotifier{SlackWebhookURL: config.SlackWebhookURL})
	}

	eng := &engine.Engine{
		Logger:           logger.With("component", "automod"),
		Rules:            rules.DefaultRules(),
		Platform:         platform,
		Warns:            st.warns,
		Mutes:            ledger,
		Cooldowns:        st.cooldowns,
		Counters:         st.counters,
		Notifiers:        notifiers,
		AutoRemovalQuota: config.AutoRemovalQuota,
	}

	limiter, err := ratelimit.New(ratelimit.WithLimits(ratelimit.Limits{
		User:    ratelimit.Window{Period: config.UserRateWindow, Max: config.UserRateMax},
		Command: ratelimit.Window{Period: config.CmdRateWindow, Max: config.CmdRateMax},
	}))
	if err != nil {
		return nil, err
	}
	handler := commands.NewHandler(eng, limiter, platform, commands.StaffPolicy{
		OwnerID:      config.OwnerID,
		StaffRoleIDs: config.StaffRoleIDs,
	}, logger.With("component", "commands"))

	s := &Server{
		logger:       logger,
		settingsPath: config.SettingsPath,
		engine:       eng,
		ledger:       ledger,
		session:      session,
		bridge: &discord.Bridge{
			Engine:   eng,
			Commands: handler,
			Logger:   logger.With("component", "bridge"),
		},
		metricsAddr: config.MetricsListen,
	}
	s.ReloadSettings()
	if config.Bind != "" {
		s.admin = &http.Server{
			Addr:           config.Bind,
			Handler:        s.newAdminHandler(config.AdminPassword),
			ReadTimeout:    time.Minute,
			WriteTimeout:   time.Minute,
			MaxHeaderBytes: 1024 * 1024,
		}
	}
	return s, nil
}

// Loads the settings file and swaps it in to the engine. Messages already in flight finish with the old settings.
func (s *Server) ReloadSettings() *engine.Settings {
	settings := config.Load(s.settingsPath, s.logger)
	for _, p := range config.Validate(settings, s.engine.Rules) {
		s.logger.Warn("automod settings problem", "path", s.settingsPath, "problem", p.Error())
	}
	s.engine.SetSettings(settings)
	settingsReloads.WithLabelValues("ok").Inc()
	s.logger.Info("automod settings loaded", "path", s.settingsPath, "enabled", settings.Enabled, "rules", len(settings.Rules))
	return settings
}

func (s *Server) Run(ctx context.Context) error {
	restored, err := s.ledger.RestoreAll(ctx)
	if err != nil {
		return fmt.Errorf("restoring mutes: %w", err)
	}
	mutesRestored.Set(float64(restored))

	s.bridge.Register(ctx, s.session)
	if err := s.session.Open(); err != nil {
		return fmt.Errorf("opening discord session: %w", err)
	}
	s.logger.Info("discord session opened", "version", versioninfo.Short())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.ledger.Run(gctx)
	})
	g.Go(func() error {
		return metrics.RunServer(gctx, s.metricsAddr, versioninfo.Short())
	})
	g.Go(func() error {
		return runReloadOnHangup(gctx, func() { s.ReloadSettings() })
	})
	if s.admin != nil {
		g.Go(func() error {
			return runHTTPServer(gctx, s.admin, s.logger)
		})
	}

	err = g.Wait()

	s.logger.Info("shutting down")
	if cerr := s.session.Close(); cerr != nil {
		s.logger.Error("failed to close discord session", "err", cerr)
	}
	s.engine.Flush()
	return err
}
