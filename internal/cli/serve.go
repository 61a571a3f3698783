package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/janic0/autotwitter/internal/account"
	"github.com/janic0/autotwitter/internal/api"
	"github.com/janic0/autotwitter/internal/bot"
	"github.com/janic0/autotwitter/internal/config"
	"github.com/janic0/autotwitter/internal/logging"
	"github.com/janic0/autotwitter/internal/loop"
	"github.com/janic0/autotwitter/internal/posts"
	"github.com/janic0/autotwitter/internal/replyqueue"
	"github.com/janic0/autotwitter/internal/scheduler"
	"github.com/janic0/autotwitter/internal/store"
	"github.com/janic0/autotwitter/internal/telegram"
	"github.com/janic0/autotwitter/internal/twitter"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler, delivery loop, chat bot and HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(parent context.Context) error {
	cfg := appConfig
	logger := logging.Component("serve")

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kv, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer kv.Close()

	accounts := account.NewService(kv)
	repo := posts.NewRepository(kv)
	engine := scheduler.NewEngine(repo, accounts)
	postService := posts.NewService(repo, accounts, engine)

	twitterClient := twitter.NewClient(cfg.Twitter.ClientID, cfg.Twitter.ClientSecret)
	tokens := twitter.NewTokenSource(accounts, twitterClient)

	// One dedupe set guards both the dispatch loop and the bot's outward
	// replies.
	dedupe := loop.NewDedupe(time.Hour, 4096)

	var (
		queue      *replyqueue.Service
		botHandler *bot.Handler
		notifier   loop.Notifier
	)
	if cfg.TelegramEnabled() {
		tg := telegram.NewClient(cfg.Telegram.Token)
		queue = replyqueue.NewService(kv, bot.NewPresenter(tg))
		botHandler = bot.NewHandler(queue, accounts, tokens, twitterClient, tg, kv, cfg.Server.SiteURL, bot.WithDeduper(dedupe))
		notifier = tg

		if cfg.Telegram.WebhookToken == "" {
			poller := bot.NewPoller(tg, botHandler, kv, cfg.Telegram.PollTimeout)
			go poller.Run(ctx)
			logger.Info().Msg("chat update polling started")
		}
	} else {
		queue = replyqueue.NewService(kv, nil)
		notifier = noopNotifier{}
		logger.Warn().Msg("telegram token not configured, chat features disabled")
	}

	runner := loop.NewRunner(loop.Config{
		DispatchInterval: cfg.Loop.DispatchInterval,
		ReminderInterval: cfg.Loop.ReminderInterval,
		MentionInterval:  cfg.Loop.MentionInterval,
		SiteURL:          cfg.Server.SiteURL,
	}, repo, accounts, engine, queue, tokens, twitterClient, notifier, kv, loop.WithDedupe(dedupe))
	if err := runner.Start(ctx); err != nil {
		return err
	}
	defer runner.Stop()

	server := api.NewServer(api.Config{
		APIKey:       cfg.Server.APIKey,
		WebhookToken: cfg.Telegram.WebhookToken,
	}, postService, botHandler)

	logger.Info().Str("addr", cfg.Server.Addr).Msg("http server listening")
	return server.ListenAndServe(ctx, cfg.Server.Addr)
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		return store.OpenSQLite(store.SQLiteConfig{Path: cfg.Store.SQLitePath})
	case config.BackendRedis:
		return store.OpenRedis(ctx, cfg.Store.RedisURL)
	case config.BackendMemory:
		return store.NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
}

// noopNotifier drops reminders when no chat transport is configured.
type noopNotifier struct{}

func (noopNotifier) SendMessage(context.Context, int64, string, telegram.SendOptions) (int64, error) {
	return 0, nil
}
