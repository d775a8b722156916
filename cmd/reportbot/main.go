package main

import (
	"context"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/reportbot/internal/adapters"
	"github.com/iamwavecut/reportbot/internal/adapters/llm"
	"github.com/iamwavecut/reportbot/internal/adapters/llm/gemini"
	"github.com/iamwavecut/reportbot/internal/adapters/llm/openai"
	"github.com/iamwavecut/reportbot/internal/audit"
	"github.com/iamwavecut/reportbot/internal/bot"
	"github.com/iamwavecut/reportbot/internal/config"
	"github.com/iamwavecut/reportbot/internal/db/sqlite"
	"github.com/iamwavecut/reportbot/internal/handlers/report"
	"github.com/iamwavecut/reportbot/internal/i18n"
	"github.com/iamwavecut/reportbot/internal/infra"
	"github.com/iamwavecut/reportbot/internal/infrastructure/telegram"
	"github.com/iamwavecut/reportbot/internal/lifecycle"
	"github.com/iamwavecut/reportbot/internal/moderation"
	"github.com/iamwavecut/reportbot/internal/observability"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	log.SetFormatter(&config.LogFormatter{})
	log.SetOutput(os.Stdout)
	if err != nil {
		log.WithError(err).Fatalln("cant load config")
	}
	log.SetLevel(log.Level(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.WithError(err).Fatalln("reportbot stopped")
	}
	log.Infoln("reportbot stopped")
}

func run(ctx context.Context, cfg config.Config) error {
	if !slices.Contains(i18n.Languages(), strings.ToUpper(cfg.DefaultLanguage)) {
		log.WithField("lang", cfg.DefaultLanguage).Warn("no translations for language, falling back to en")
	}

	botAPI, err := api.NewBotAPI(cfg.TelegramAPIToken)
	if err != nil {
		return errors.Wrap(err, "cant initialize bot api")
	}
	if log.Level(cfg.LogLevel) == log.TraceLevel {
		botAPI.Debug = true
	}
	log.WithField("bot", botAPI.Self.UserName).Info("authorized")

	policy, err := moderation.LoadPolicy(cfg.Moderation.PolicyPath)
	if err != nil {
		return errors.Wrap(err, "cant load policy")
	}
	log.WithField("version", policy.Version).Info("policy loaded")

	rt := lifecycle.NewRuntime()

	model, err := newLLM(ctx, cfg, policy, rt)
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics()
	rt.Register("observability", observability.NewServer(cfg.MetricsAddr, metrics))

	dataDir, err := infra.EnsureDir(cfg.DotPath)
	if err != nil {
		return errors.Wrap(err, "cant prepare data dir")
	}
	store, err := sqlite.NewSQLiteClient(ctx, dataDir, cfg.Audit.Database)
	if err != nil {
		return errors.Wrap(err, "cant open audit database")
	}
	if n, err := store.CountAuditEntries(ctx); err == nil {
		log.WithField("entries", n).Info("audit database opened")
	}
	fileSink, err := audit.NewFileSink(infra.ResolveFile(dataDir, cfg.Audit.File))
	if err != nil {
		_ = store.Close()
		return errors.Wrap(err, "cant open audit file")
	}
	journal := audit.NewJournal(time.Now, audit.NewStoreSink(store), fileSink)
	rt.Register("audit", journal)

	state, err := moderation.NewState(moderation.StateConfig{
		HistorySize: cfg.Moderation.HistorySize,
		Cooldown:    cfg.Moderation.ReportCooldown,
	})
	if err != nil {
		return errors.Wrap(err, "cant create state")
	}
	rt.Register("state", state)

	ops := telegram.NewOperations(botAPI)
	svc := moderation.NewService(moderation.Dependencies{
		State:      state,
		Platform:   ops,
		Classifier: moderation.NewClassifier(model, policy, cfg.LLM.Timeout, metrics),
		Policy:     policy,
		Auditor:    journal,
		History:    audit.NewLookup(store),
		Telemetry:  metrics,
	}, moderation.Options{
		MonitoredChatID: cfg.Chats.MonitoredChatID,
		ReviewChatID:    cfg.Chats.ReviewChatID,
		ContextSize:     cfg.Moderation.ContextSize,
		Language:        cfg.DefaultLanguage,
	})

	processor := bot.NewUpdateProcessor(report.NewReport(svc, ops, cfg.DefaultLanguage))
	rt.Register("poller", bot.NewPoller(botAPI, processor, cfg.MaxInFlight))

	if err := ops.CheckEnforcement(ctx, cfg.Chats.MonitoredChatID, botAPI.Self.ID); err != nil {
		log.WithError(err).Warn("bot cant enforce verdicts in the monitored chat")
	}

	if err := rt.Start(ctx); err != nil {
		return errors.Wrap(err, "cant start")
	}
	log.WithFields(log.Fields{
		"chat":   cfg.Chats.MonitoredChatID,
		"review": cfg.Chats.ReviewChatID,
	}).Info("reportbot started")

	<-ctx.Done()
	log.Info("shutting down")

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return rt.Stop(stopCtx)
}

func newLLM(ctx context.Context, cfg config.Config, policy *moderation.Policy, rt *lifecycle.Runtime) (adapters.LLM, error) {
	params := llm.GenerationParameters{
		Temperature:     policy.Generation.Temperature,
		MaxOutputTokens: policy.Generation.MaxTokens,
	}
	switch cfg.LLM.Type {
	case "gemini":
		g, err := gemini.NewGemini(ctx, cfg.LLM.APIKey, cfg.LLM.Model, params)
		if err != nil {
			return nil, errors.Wrap(err, "cant create gemini client")
		}
		rt.Register("gemini", closer(g.Close))
		return g, nil
	default:
		return openai.NewOpenAI(openai.Options{
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			BaseURL: cfg.LLM.BaseURL,
			Referer: cfg.LLM.Referer,
			Title:   cfg.LLM.Title,
		}, params), nil
	}
}

// closer adapts a Close method to a lifecycle component.
type closer func() error

func (closer) Start(context.Context) error  { return nil }
func (c closer) Stop(context.Context) error { return c() }
