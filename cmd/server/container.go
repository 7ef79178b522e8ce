// container.go
package main

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/Abraxas-365/parley/pkg/ai/llm"
	"github.com/Abraxas-365/parley/pkg/ai/llm/tokenx"
	"github.com/Abraxas-365/parley/pkg/ai/llm/windowx"
	aiopenai "github.com/Abraxas-365/parley/pkg/ai/providers/openai"
	"github.com/Abraxas-365/parley/pkg/chat"
	"github.com/Abraxas-365/parley/pkg/chat/chatapi"
	"github.com/Abraxas-365/parley/pkg/chat/chatinfra"
	"github.com/Abraxas-365/parley/pkg/chat/chatsrv"
	"github.com/Abraxas-365/parley/pkg/config"
	"github.com/Abraxas-365/parley/pkg/logx"
)

// Container holds all application dependencies
type Container struct {
	// Config
	Config *config.Config

	// Infrastructure
	DB    *sqlx.DB
	Redis *redis.Client
	Store chat.ConversationStore

	// Services
	ChatService *chatsrv.Service

	// API Handlers
	ChatHandlers *chatapi.ChatHandlers
}

// NewContainer initializes the dependency injection container
func NewContainer(cfg *config.Config) *Container {
	logx.Info("🔧 Initializing dependency container...")

	c := &Container{
		Config: cfg,
	}

	c.initStore()
	c.initServices()

	logx.Info("✅ Container initialized successfully")
	return c
}

func (c *Container) initStore() {
	switch c.Config.Storage.Backend {
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Config.Database.Host,
			c.Config.Database.Port,
			c.Config.Database.User,
			c.Config.Database.Password,
			c.Config.Database.Name,
			c.Config.Database.SSLMode,
		)

		db, err := sqlx.Connect("postgres", dsn)
		if err != nil {
			logx.Fatalf("Failed to connect to database: %v", err)
		}
		db.SetMaxOpenConns(c.Config.Database.MaxOpenConns)
		db.SetMaxIdleConns(c.Config.Database.MaxIdleConns)
		db.SetConnMaxLifetime(c.Config.Database.ConnMaxLifetime)
		c.DB = db

		store := chatinfra.NewPostgresStore(db).(*chatinfra.PostgresStore)
		if err := store.EnsureSchema(context.Background()); err != nil {
			logx.Fatalf("Failed to apply schema: %v", err)
		}
		c.Store = store
		logx.Info("✅ Postgres conversation store configured")

	case "redis":
		c.Redis = redis.NewClient(&redis.Options{
			Addr:     c.Config.Redis.Address(),
			Password: c.Config.Redis.Password,
			DB:       c.Config.Redis.DB,
		})
		if _, err := c.Redis.Ping(context.Background()).Result(); err != nil {
			logx.Fatalf("Failed to connect to Redis: %v", err)
		}
		c.Store = chatinfra.NewRedisStore(c.Redis, c.Config.Redis.TTL)
		logx.Info("✅ Redis conversation store configured")

	case "memory":
		c.Store = chatinfra.NewMemoryStore()
		logx.Warn("⚠️  Using in-memory conversation store (not recommended for production)")

	default:
		logx.Fatalf("Unknown STORAGE_BACKEND: %s (use 'memory', 'redis' or 'postgres')", c.Config.Storage.Backend)
	}
}

func (c *Container) initServices() {
	provider := aiopenai.NewOpenAIProvider(c.Config.LLM.APIKey)
	client := llm.NewClient(provider)

	counter := c.buildCounter()

	policy, err := windowx.ParsePolicy(c.Config.Context.Policy)
	if err != nil {
		logx.Fatalf("Invalid CONTEXT_POLICY: %v", err)
	}

	managerOpts := []windowx.ManagerOption{}
	wantsSummarizer := policy == windowx.PolicySummarize || policy == windowx.PolicyHybrid
	if wantsSummarizer && !c.Config.Context.Summarize {
		logx.Warnf("⚠️  CONTEXT_SUMMARIZE=false with policy %s, falling back to sliding window reduction", policy)
	}
	if wantsSummarizer && c.Config.Context.Summarize {
		summarizer := windowx.NewLLMSummarizer(
			client,
			counter,
			c.Config.LLM.SummaryModel,
			c.Config.Context.SummaryMaxTokens,
		)
		managerOpts = append(managerOpts, windowx.WithSummarizer(summarizer))
	}
	manager := windowx.NewManager(policy, managerOpts...)

	c.ChatService = chatsrv.NewService(c.Store, client, manager, counter, chatsrv.Config{
		Model:          c.Config.LLM.Model,
		Temperature:    float32(c.Config.LLM.Temperature),
		MaxReplyTokens: c.Config.LLM.MaxReplyTokens,
		SystemPrompt:   c.Config.Context.SystemPrompt,
		Budget: windowx.Budget{
			MaxTokens:  c.Config.Context.MaxTokens,
			RecentKeep: c.Config.Context.RecentKeep,
		},
	})

	c.ChatHandlers = chatapi.NewChatHandlers(c.ChatService)

	logx.WithFields(logx.Fields{
		"policy":      string(policy),
		"max_tokens":  c.Config.Context.MaxTokens,
		"recent_keep": c.Config.Context.RecentKeep,
		"counter":     c.Config.Context.Counter,
	}).Info("✅ Context manager configured")
}

func (c *Container) buildCounter() tokenx.Counter {
	switch c.Config.Context.Counter {
	case "chars":
		return tokenx.CharCounter{CharsPerToken: c.Config.Context.CharsPerToken}
	default:
		counter, err := tokenx.NewTiktokenCounter(tokenx.DefaultEncoding)
		if err != nil {
			logx.Warnf("⚠️  Tiktoken unavailable, falling back to character estimate: %v", err)
			return tokenx.CharCounter{CharsPerToken: c.Config.Context.CharsPerToken}
		}
		return counter
	}
}

// Cleanup closes all connections
func (c *Container) Cleanup() {
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logx.Errorf("Error closing database: %v", err)
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logx.Errorf("Error closing Redis: %v", err)
		}
	}
	logx.Info("✅ Cleanup completed")
}
