// Package stats tracks token usage per provider and model.
package stats

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/erenbertr/op3-sub001/pkg/logger"
	"github.com/erenbertr/op3-sub001/pkg/storage"
)

// Table describes the usage_stats table. One row accumulates the usage of
// one provider and model on one day.
var Table = &storage.TableDefinition{
	Name: "usage_stats",
	Columns: []storage.ColumnDef{
		{Name: "id", Type: storage.TypeString, PrimaryKey: true},
		{Name: "period", Type: storage.TypeString},
		{Name: "provider", Type: storage.TypeString},
		{Name: "model", Type: storage.TypeString},
		{Name: "requests", Type: storage.TypeInt},
		{Name: "prompt_tokens", Type: storage.TypeInt},
		{Name: "completion_tokens", Type: storage.TypeInt},
		{Name: "updated_at", Type: storage.TypeTimestamp},
	},
	UniqueConstraints: []storage.UniqueConstraint{
		{Name: "usage_stats_period_provider_model_key", Columns: []string{"period", "provider", "model"}},
	},
}

// Service accumulates and reports usage statistics
type Service struct {
	store  *storage.Manager
	logger *logger.Logger
}

// NewService creates a new stats service
func NewService(store *storage.Manager, logger *logger.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

// Usage is one accumulated usage row.
type Usage struct {
	Period           string
	Provider         string
	Model            string
	Requests         int64
	PromptTokens     int64
	CompletionTokens int64
}

// Summary aggregates usage across periods.
type Summary struct {
	Requests         int64
	PromptTokens     int64
	CompletionTokens int64
	ByModel          map[string]*Usage
}

// Record adds one request's token counts to today's row for the provider
// and model, creating the row on first use.
func (s *Service) Record(ctx context.Context, provider, model string, promptTokens, completionTokens int64) error {
	period := time.Now().UTC().Format("2006-01-02")
	predicate := storage.Predicate{"period": period, "provider": provider, "model": model}

	current := Usage{}
	existing, err := s.store.FindOne(ctx, Table, predicate)
	if err != nil {
		return err
	}
	id := uuid.NewString()
	if existing != nil {
		id, _ = existing["id"].(string)
		current = *recordToUsage(existing)
	}

	_, err = s.store.Upsert(ctx, Table, predicate, storage.Record{
		"id":                id,
		"requests":          current.Requests + 1,
		"prompt_tokens":     current.PromptTokens + promptTokens,
		"completion_tokens": current.CompletionTokens + completionTokens,
		"updated_at":        time.Now().UTC(),
	})
	if err != nil {
		s.logger.Errorf("Failed to record usage for %s/%s: %v", provider, model, err)
	}
	return err
}

// ForProvider returns the usage rows of one provider, newest period first.
func (s *Service) ForProvider(ctx context.Context, provider string) ([]*Usage, error) {
	records, err := s.store.FindMany(ctx, Table,
		storage.Predicate{"provider": provider},
		&storage.FindOptions{OrderBy: []storage.Order{{Column: "period", Descending: true}}})
	if err != nil {
		return nil, err
	}

	usage := make([]*Usage, 0, len(records))
	for _, record := range records {
		usage = append(usage, recordToUsage(record))
	}
	return usage, nil
}

// Summarize aggregates all usage rows in memory. Aggregation never happens
// in the engine, so every engine kind reports identical totals.
func (s *Service) Summarize(ctx context.Context) (*Summary, error) {
	records, err := s.store.FindMany(ctx, Table, storage.Predicate{}, nil)
	if err != nil {
		return nil, err
	}

	summary := &Summary{ByModel: make(map[string]*Usage)}
	for _, record := range records {
		usage := recordToUsage(record)
		summary.Requests += usage.Requests
		summary.PromptTokens += usage.PromptTokens
		summary.CompletionTokens += usage.CompletionTokens

		key := usage.Provider + "/" + usage.Model
		total, exists := summary.ByModel[key]
		if !exists {
			total = &Usage{Provider: usage.Provider, Model: usage.Model}
			summary.ByModel[key] = total
		}
		total.Requests += usage.Requests
		total.PromptTokens += usage.PromptTokens
		total.CompletionTokens += usage.CompletionTokens
	}
	return summary, nil
}

func recordToUsage(record storage.Record) *Usage {
	usage := &Usage{}
	usage.Period, _ = record["period"].(string)
	usage.Provider, _ = record["provider"].(string)
	usage.Model, _ = record["model"].(string)
	usage.Requests, _ = record["requests"].(int64)
	usage.PromptTokens, _ = record["prompt_tokens"].(int64)
	usage.CompletionTokens, _ = record["completion_tokens"].(int64)
	return usage
}
