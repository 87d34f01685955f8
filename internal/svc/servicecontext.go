// Package svc wires the service's dependencies into one context struct
// passed down to logic and handlers.
package svc

import (
	"database/sql"
	"fmt"

	"github.com/taskchat/taskchat/internal/agent/ai"
	"github.com/taskchat/taskchat/internal/agent/orchestrator"
	"github.com/taskchat/taskchat/internal/agent/tools"
	"github.com/taskchat/taskchat/internal/config"
	"github.com/taskchat/taskchat/internal/db"
	"github.com/taskchat/taskchat/internal/store"
)

// ServiceContext carries shared dependencies for all handlers.
type ServiceContext struct {
	Config        config.Config
	DB            *sql.DB
	Tasks         *store.Tasks
	Conversations *store.Conversations
	Registry      *tools.Registry
	Provider      ai.Provider
	Orchestrator  *orchestrator.Orchestrator
}

// NewServiceContext opens storage, builds the tool registry, and selects
// the completion provider from config.
func NewServiceContext(c config.Config) (*ServiceContext, error) {
	database, err := db.Open(c.Database.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	taskStore := store.NewTasks(database)
	convStore := store.NewConversations(database)

	registry := tools.NewRegistry()
	tools.RegisterTaskTools(registry, taskStore)

	provider, err := newProvider(c)
	if err != nil {
		database.Close()
		return nil, err
	}

	return &ServiceContext{
		Config:        c,
		DB:            database,
		Tasks:         taskStore,
		Conversations: convStore,
		Registry:      registry,
		Provider:      provider,
		Orchestrator:  orchestrator.New(provider, registry, c.Model.MaxIterations, c.Model.MaxRetries),
	}, nil
}

func newProvider(c config.Config) (ai.Provider, error) {
	switch c.Model.Provider {
	case "openai":
		return ai.NewOpenAIProvider(c.Model.APIKey, c.Model.Name, c.Model.BaseURL), nil
	case "anthropic":
		return ai.NewAnthropicProvider(c.Model.APIKey, c.Model.Name, c.Model.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", c.Model.Provider)
	}
}

// Close releases the service's resources.
func (s *ServiceContext) Close() error {
	return s.DB.Close()
}
