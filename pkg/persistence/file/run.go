package file

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dukex/opsdesk/pkg/models"
	"github.com/dukex/opsdesk/pkg/persistence"
)

// CreateRun inserts a new queued run.
func (p *Persistence) CreateRun(_ context.Context, run *models.WorkflowRun) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if run.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate run ID: %w", err)
		}

		run.ID = id.String()
	}

	if run.Status == "" {
		run.Status = models.RunStatusQueued
	}

	if run.QueuedAt.IsZero() {
		run.QueuedAt = time.Now().UTC()
	}

	if run.TriggerPayload == nil {
		run.TriggerPayload = models.Document{}
	}

	return p.write(collectionRuns, run.ID, run)
}

// RunByID returns a run by its ID.
func (p *Persistence) RunByID(_ context.Context, id string) (*models.WorkflowRun, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	run := &models.WorkflowRun{}

	found, err := p.readInto(collectionRuns, id, run)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.NewStoreError("RunByID", "run", id, persistence.ErrRunNotFound)
	}

	return run, nil
}

// Runs returns runs matching the filter, newest first.
func (p *Persistence) Runs(_ context.Context, filter persistence.RunFilter) ([]*models.WorkflowRun, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	runs, err := readAll[models.WorkflowRun](p, collectionRuns)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.WorkflowRun, 0)

	for _, run := range runs {
		if filter.WorkflowID != "" && run.WorkflowID != filter.WorkflowID {
			continue
		}

		if filter.Status != "" && run.Status != filter.Status {
			continue
		}

		matched = append(matched, run)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].QueuedAt.After(matched[j].QueuedAt)
	})

	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	return matched, nil
}

// DueRuns returns up to limit queued runs whose workflow delay deadline has
// passed, oldest first.
func (p *Persistence) DueRuns(ctx context.Context, now time.Time, limit int) ([]*models.WorkflowRun, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	runs, err := readAll[models.WorkflowRun](p, collectionRuns)
	if err != nil {
		return nil, err
	}

	due := make([]*models.WorkflowRun, 0)

	for _, run := range runs {
		if run.Status != models.RunStatusQueued {
			continue
		}

		workflow := &models.Workflow{}

		found, err := p.readInto(collectionWorkflows, run.WorkflowID, workflow)
		if err != nil {
			return nil, err
		}

		if !found {
			// Workflow deleted after enqueue; the run stays queued per the
			// no-retroactive-cancel rule and becomes due immediately.
			workflow = &models.Workflow{}
		}

		if !run.QueuedAt.Add(workflow.Delay()).After(now) {
			due = append(due, run)
		}
	}

	sort.Slice(due, func(i, j int) bool {
		return due[i].QueuedAt.Before(due[j].QueuedAt)
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	return due, nil
}

// ClaimRun transitions a run from queued to running. The returned bool
// reports whether this caller won the claim.
func (p *Persistence) ClaimRun(_ context.Context, id string, startedAt time.Time) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	run := &models.WorkflowRun{}

	found, err := p.readInto(collectionRuns, id, run)
	if err != nil {
		return false, err
	}

	if !found || run.Status != models.RunStatusQueued {
		return false, nil
	}

	run.Status = models.RunStatusRunning
	run.StartedAt = &startedAt

	err = p.write(collectionRuns, id, run)
	if err != nil {
		return false, err
	}

	return true, nil
}

// CompleteRun finalizes a running run as completed with its action results.
func (p *Persistence) CompleteRun(_ context.Context, id string, completedAt time.Time, results []models.ActionResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	run := &models.WorkflowRun{}

	found, err := p.readInto(collectionRuns, id, run)
	if err != nil {
		return err
	}

	if !found || run.Status != models.RunStatusRunning {
		return persistence.NewStoreError("CompleteRun", "run", id, persistence.ErrRunNotFound)
	}

	run.Status = models.RunStatusCompleted
	run.CompletedAt = &completedAt
	run.ResultPayload = results

	return p.write(collectionRuns, id, run)
}

// FailRun finalizes a running run as failed with the error text. Partial
// action results are intentionally not persisted.
func (p *Persistence) FailRun(_ context.Context, id string, completedAt time.Time, errorMessage string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	run := &models.WorkflowRun{}

	found, err := p.readInto(collectionRuns, id, run)
	if err != nil {
		return err
	}

	if !found || run.Status != models.RunStatusRunning {
		return persistence.NewStoreError("FailRun", "run", id, persistence.ErrRunNotFound)
	}

	run.Status = models.RunStatusFailed
	run.CompletedAt = &completedAt
	run.ErrorMessage = errorMessage

	return p.write(collectionRuns, id, run)
}

// RunningRunsStartedBefore returns runs still running that started before the cutoff.
func (p *Persistence) RunningRunsStartedBefore(_ context.Context, cutoff time.Time) ([]*models.WorkflowRun, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	runs, err := readAll[models.WorkflowRun](p, collectionRuns)
	if err != nil {
		return nil, err
	}

	stuck := make([]*models.WorkflowRun, 0)

	for _, run := range runs {
		if run.Status == models.RunStatusRunning && run.StartedAt != nil && run.StartedAt.Before(cutoff) {
			stuck = append(stuck, run)
		}
	}

	sort.Slice(stuck, func(i, j int) bool {
		return stuck[i].StartedAt.Before(*stuck[j].StartedAt)
	})

	return stuck, nil
}
