package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

const envPrefix = "RB_"

type (
	Config struct {
		TelegramAPIToken string `env:"TOKEN,required"`
		DefaultLanguage  string `env:"LANG,default=en"`
		LogLevel         int    `env:"LOG_LEVEL,default=4"`
		DotPath          string `env:"DOT_PATH,default=~/.reportbot"`
		MaxInFlight      int    `env:"MAX_IN_FLIGHT,default=16"`
		MetricsAddr      string `env:"METRICS_ADDR,default=:2112"`
		Chats            Chats
		LLM              LLM
		Moderation       Moderation
		Audit            Audit
	}

	Chats struct {
		MonitoredChatID int64 `env:"CHAT_ID,required"`
		ReviewChatID    int64 `env:"REVIEW_CHAT_ID,required"`
	}

	LLM struct {
		APIKey  string        `env:"LLM_API_KEY,required"`
		Model   string        `env:"LLM_API_MODEL,default=openrouter/auto"`
		BaseURL string        `env:"LLM_API_URL,default=https://openrouter.ai/api/v1"`
		Type    string        `env:"LLM_API_TYPE,default=openai"`
		Timeout time.Duration `env:"LLM_TIMEOUT,default=30s"`
		Referer string        `env:"LLM_REFERER"`
		Title   string        `env:"LLM_TITLE,default=Report Bot"`
	}

	Moderation struct {
		PolicyPath     string        `env:"POLICY_PATH"`
		ReportCooldown time.Duration `env:"REPORT_COOLDOWN,default=30s"`
		ContextSize    int           `env:"CONTEXT_SIZE,default=15"`
		HistorySize    int           `env:"HISTORY_SIZE,default=150"`
	}

	Audit struct {
		File     string `env:"AUDIT_FILE,default=reported_messages.log"`
		Database string `env:"AUDIT_DB,default=audit.db"`
	}
)

var (
	once         sync.Once
	globalConfig = &Config{}
	globalErr    error
)

// Load reads the process environment once and caches the result.
func Load() (Config, error) {
	once.Do(func() {
		cfg, err := LoadWith(context.Background(), envconfig.OsLookuper())
		if err != nil {
			globalErr = err
			return
		}
		log.Traceln("loaded config")
		globalConfig = cfg
	})
	return *globalConfig, globalErr
}

// LoadWith resolves the configuration through an arbitrary lookuper, prefixing every key with RB_.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	envcfg := envconfig.Config{
		Lookuper: envconfig.PrefixLookuper(envPrefix, lookuper),
		Target:   cfg,
	}
	if err := envconfig.ProcessWith(ctx, &envcfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}

	dotPath, err := homedir.Expand(cfg.DotPath)
	if err != nil {
		return nil, fmt.Errorf("expand dot path: %w", err)
	}
	cfg.DotPath = dotPath

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Chats.MonitoredChatID == c.Chats.ReviewChatID {
		return fmt.Errorf("monitored chat and review chat must differ")
	}
	if c.Moderation.ReportCooldown < 0 {
		return fmt.Errorf("report cooldown must not be negative")
	}
	if c.Moderation.ContextSize < 0 {
		return fmt.Errorf("context size must not be negative")
	}
	if c.Moderation.HistorySize < 1 {
		return fmt.Errorf("history size must be positive")
	}
	if c.MaxInFlight < 1 {
		return fmt.Errorf("max in flight must be positive")
	}
	switch c.LLM.Type {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unsupported llm api type %q", c.LLM.Type)
	}
	return nil
}
