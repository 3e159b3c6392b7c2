package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/soyeahso/cpbot/internal/bot"
	"github.com/soyeahso/cpbot/internal/config"
	"github.com/soyeahso/cpbot/internal/discord"
	"github.com/soyeahso/cpbot/internal/dispatch"
	"github.com/soyeahso/cpbot/internal/gateway"
	"github.com/soyeahso/cpbot/internal/logging"
	"github.com/soyeahso/cpbot/internal/metrics"
	"github.com/soyeahso/cpbot/internal/monitor"
	"github.com/soyeahso/cpbot/internal/sites"
	"github.com/soyeahso/cpbot/internal/store"
	"github.com/soyeahso/cpbot/internal/version"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var (
		monitorPort int
		storeDriver string
	)

	cmd := &cobra.Command{
		Use:     "run",
		Aliases: []string{"start"},
		Short:   "Connect to the gateway and serve commands until interrupted",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			if monitorPort != 0 {
				cfg.Monitor.Enabled = true
				cfg.Monitor.Port = monitorPort
			}
			if storeDriver != "" {
				cfg.Store.Driver = storeDriver
			}
			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}

			issues := config.Validate(&cfg)
			if issue := config.RequireToken(&cfg); issue != nil {
				issues = append(issues, *issue)
			}
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			if err := paths.EnsureDirs(); err != nil {
				return fmt.Errorf("creating data directories: %w", err)
			}
			logFile := cfg.Logging.File
			if logFile != "" && !filepath.IsAbs(logFile) {
				logFile = filepath.Join(paths.Logs, logFile)
			}
			runLog, closer, err := logging.Open(logging.Options{
				Level: cfg.Logging.Level,
				Style: cfg.Logging.Style,
				File:  logFile,
			})
			if err != nil {
				return err
			}
			defer closer.Close()
			log = runLog

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runBot(ctx, cfg, runLog)
		},
	}

	cmd.Flags().IntVar(&monitorPort, "monitor-port", 0, "enable the monitor server on this port")
	cmd.Flags().StringVar(&storeDriver, "store", "", "override store driver (sqlite, memory, mongo)")

	return cmd
}

// runBot wires every component and runs the gateway session. It returns nil
// when ctx is cancelled and the session error otherwise.
func runBot(ctx context.Context, cfg config.Config, log *logging.Logger) error {
	startedAt := time.Now()
	m := metrics.New()

	st, err := store.OpenFromConfig(ctx, cfg.Store, paths.Database(), log)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer closeQuietly(st, log, "store")

	entities := bot.NewEntities(st)
	if err := entities.Load(ctx); err != nil {
		return fmt.Errorf("loading entities: %w", err)
	}
	users, channels := entities.Counts()
	log.Info().Str("driver", cfg.Store.Driver).Int("users", users).Int("channels", channels).Msg("store loaded")

	rest := discord.NewClient(discord.ClientConfig{
		Token:             cfg.Discord.Token,
		BaseURL:           cfg.Discord.APIURL,
		UserAgent:         version.UserAgent(),
		RequestsPerSecond: cfg.Discord.RequestsPerSecond,
		Burst:             cfg.Discord.Burst,
		Timeout:           cfg.Discord.RequestTimeout(),
	}, log, discord.WithMetrics(m))

	registry := dispatch.NewRegistry(log, m)
	session := gateway.NewSession(gateway.SessionConfig{
		Token:               cfg.Discord.Token,
		Activity:            cfg.Bot.Activity,
		GatewayVersion:      cfg.Discord.GatewayVersion,
		ConnectTimeout:      cfg.Discord.ConnectTimeout(),
		RequireHeartbeatAck: cfg.Discord.RequireHeartbeatAck,
	}, rest, gateway.WebsocketDialer{HandshakeTimeout: cfg.Discord.ConnectTimeout()}, registry, log, gateway.WithMetrics(m))

	container := sites.New(cfg.Sites, version.UserAgent(), log, m)

	opts, err := bot.OptionsFromConfig(cfg.Bot)
	if err != nil {
		return err
	}
	b := bot.New(opts, bot.Deps{
		REST:     rest,
		Identity: session,
		Sites:    container,
		Entities: entities,
		Registry: registry,
		Log:      log,
		Metrics:  m,
	})
	if err := b.Register(); err != nil {
		return err
	}

	container.SetProfileHandlers(entities, b)
	container.Start(ctx)
	defer container.Stop()

	if cfg.Monitor.Enabled {
		srv := monitor.New(cfg.Monitor, log, m, func() monitor.Status {
			return snapshot(startedAt, session, entities, container)
		})
		go func() {
			if err := srv.Start(ctx); err != nil {
				log.Error().Err(err).Msg("monitor server failed")
			}
		}()
	}

	err = session.Run(ctx)
	registry.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func snapshot(startedAt time.Time, session *gateway.Session, entities *bot.Entities, container *sites.Container) monitor.Status {
	state := session.State()
	st := monitor.Status{
		Version:   version.Version,
		StartedAt: startedAt,
		Session: monitor.SessionStatus{
			State:          state.String(),
			Ready:          state == gateway.StateActive,
			ConnID:         session.ConnID(),
			SessionID:      session.SessionID(),
			HeartbeatsSent: session.HeartbeatsSent(),
		},
	}
	if seq, ok := session.LastSequence(); ok {
		st.Session.LastSequence = &seq
	}
	if since := session.ConnectedSince(); !since.IsZero() {
		st.Session.ConnectedSince = &since
	}
	st.Users, st.Channels = entities.Counts()
	for _, s := range container.Stats() {
		site := monitor.SiteStatus{Tag: s.Tag, Name: s.Name, Contests: s.Contests, Breaker: s.Breaker}
		if !s.LastFetched.IsZero() {
			last := s.LastFetched
			site.LastFetched = &last
		}
		st.Sites = append(st.Sites, site)
	}
	return st
}

func closeQuietly(c io.Closer, log *logging.Logger, what string) {
	if err := c.Close(); err != nil {
		log.Warn().Err(err).Str("component", what).Msg("close failed")
	}
}
