package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pulsedeck/backend/internal/crm"
	"github.com/pulsedeck/backend/internal/signals"
	"github.com/pulsedeck/backend/pkg/queue"
)

// SignalsAggregator computes usage signals for a set of organizations.
type SignalsAggregator interface {
	AggregateForOrgs(ctx context.Context, orgIDs []uuid.UUID) (map[uuid.UUID]signals.UsageSignals, error)
}

// CRMClient is the CRM surface the enrichment run needs.
type CRMClient interface {
	BulkUpdateAccounts(ctx context.Context, records []map[string]interface{}) ([]crm.UpdateResult, error)
	ListAccountMappings(ctx context.Context) ([]crm.AccountMapping, error)
}

// AccountCache is the org -> CRM-account mapping cache.
type AccountCache interface {
	Count(ctx context.Context) (int64, error)
	GetAll(ctx context.Context) (map[string]string, error)
	Populate(ctx context.Context, mappings []crm.AccountMapping) error
}

// JobQueue is the queue surface the worker loop needs.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, string, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// EnrichmentProcessor runs CRM enrichment jobs: resolve account mappings,
// aggregate usage signals per batch of organizations, translate and push.
type EnrichmentProcessor struct {
	aggregator       SignalsAggregator
	crm              CRMClient
	cache            AccountCache
	queue            JobQueue
	logger           *zap.Logger
	defaultBatchSize int
}

// NewEnrichmentProcessor creates an enrichment processor.
func NewEnrichmentProcessor(aggregator SignalsAggregator, crmClient CRMClient, cache AccountCache, q JobQueue, defaultBatchSize int, logger *zap.Logger) *EnrichmentProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultBatchSize <= 0 {
		defaultBatchSize = 100
	}
	return &EnrichmentProcessor{
		aggregator:       aggregator,
		crm:              crmClient,
		cache:            cache,
		queue:            q,
		logger:           logger,
		defaultBatchSize: defaultBatchSize,
	}
}

// Process executes one enrichment run.
func (p *EnrichmentProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeEnrichmentRun {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.EnrichmentRunPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if payload.BatchSize <= 0 {
		payload.BatchSize = p.defaultBatchSize
	}

	mappings, err := p.ensureMappings(ctx)
	if err != nil {
		return fmt.Errorf("account mappings: %w", err)
	}

	orgIDs, err := targetOrgs(mappings, payload)
	if err != nil {
		return err
	}
	if len(orgIDs) == 0 {
		p.logger.Info("enrichment run has no target organizations", zap.String("job_id", job.ID))
		return nil
	}

	totalSuccesses := 0
	for start := 0; start < len(orgIDs); start += payload.BatchSize {
		end := start + payload.BatchSize
		if end > len(orgIDs) {
			end = len(orgIDs)
		}
		n, err := p.processBatch(ctx, orgIDs[start:end], mappings)
		if err != nil {
			return err
		}
		totalSuccesses += n
	}

	p.logger.Info("enrichment run completed",
		zap.String("job_id", job.ID),
		zap.Int("org_count", len(orgIDs)),
		zap.Int("successes", totalSuccesses),
	)
	return nil
}

// ensureMappings reuses the cache when populated and repopulates it from the
// CRM otherwise.
func (p *EnrichmentProcessor) ensureMappings(ctx context.Context) (map[string]string, error) {
	count, err := p.cache.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		p.logger.Info("reusing account mapping cache", zap.Int64("mappings", count))
		return p.cache.GetAll(ctx)
	}

	mappings, err := p.crm.ListAccountMappings(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.cache.Populate(ctx, mappings); err != nil {
		return nil, err
	}
	return p.cache.GetAll(ctx)
}

// processBatch aggregates one batch and pushes it to the CRM. A failed bulk
// call degrades to zero successes for the batch instead of failing the run;
// the scheduler tracks overall progress across runs.
func (p *EnrichmentProcessor) processBatch(ctx context.Context, orgIDs []uuid.UUID, mappings map[string]string) (int, error) {
	results, err := p.aggregator.AggregateForOrgs(ctx, orgIDs)
	if err != nil {
		return 0, fmt.Errorf("aggregate signals: %w", err)
	}

	records := make([]map[string]interface{}, 0, len(orgIDs))
	for _, orgID := range orgIDs {
		accountID, ok := mappings[orgID.String()]
		if !ok {
			continue
		}
		records = append(records, crm.BuildUpdateRecord(accountID, results[orgID]))
	}
	if len(records) == 0 {
		return 0, nil
	}

	updateResults, err := p.crm.BulkUpdateAccounts(ctx, records)
	if err != nil {
		p.logger.Error("bulk update failed, counting zero successes", zap.Error(err), zap.Int("records", len(records)))
		return 0, nil
	}

	successes := crm.CountSuccesses(updateResults)
	for _, r := range updateResults {
		if !r.Success {
			p.logger.Warn("account update rejected", zap.String("account_id", r.ID), zap.Strings("errors", r.Errors))
		}
	}
	return successes, nil
}

func targetOrgs(mappings map[string]string, payload queue.EnrichmentRunPayload) ([]uuid.UUID, error) {
	if payload.SpecificOrgID != nil {
		return []uuid.UUID{*payload.SpecificOrgID}, nil
	}

	ids := make([]uuid.UUID, 0, len(mappings))
	for orgID := range mappings {
		id, err := uuid.Parse(orgID)
		if err != nil {
			return nil, fmt.Errorf("invalid org id in mapping cache: %q", orgID)
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	if payload.MaxOrgs > 0 && len(ids) > payload.MaxOrgs {
		ids = ids[:payload.MaxOrgs]
	}
	return ids, nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *EnrichmentProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("enrichment worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			// Cancellation surfaces as a dequeue error; no backoff, the
			// select above exits on the next iteration.
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
