package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Lllllllleong/underwritingdocumentflow/internal/models"
)

// Memory is an in-process Tracker. It also keeps the stage history of each
// job, which the CLI prints after a local run.
type Memory struct {
	mu     sync.Mutex
	jobs   map[string]*models.Job
	stages map[string][]string
}

// NewMemory returns an empty registry.
func NewMemory() *Memory {
	return &Memory{jobs: make(map[string]*models.Job), stages: make(map[string][]string)}
}

func (m *Memory) Create(_ context.Context, job *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.JobID]; ok {
		return fmt.Errorf("job %s already exists", job.JobID)
	}
	cp := *job
	now := time.Now()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	m.jobs[job.JobID] = &cp
	return nil
}

func (m *Memory) Get(_ context.Context, jobID string) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", jobID, ErrNotFound)
	}
	cp := *job
	cp.Degraded = append([]string(nil), job.Degraded...)
	return &cp, nil
}

func (m *Memory) FindByHash(_ context.Context, fileHash string) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.jobs {
		if job.FileHash == fileHash {
			cp := *job
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) SetStatus(_ context.Context, jobID, status, errDetails string) error {
	return m.with(jobID, func(job *models.Job) {
		job.Status = status
		if errDetails != "" {
			job.ErrorDetails = errDetails
		}
	})
}

func (m *Memory) SetStage(_ context.Context, jobID, stage string) error {
	return m.with(jobID, func(job *models.Job) {
		job.Stage = stage
		m.stages[jobID] = append(m.stages[jobID], stage)
	})
}

func (m *Memory) AddDegraded(_ context.Context, jobID string, reasons ...string) error {
	return m.with(jobID, func(job *models.Job) {
		for _, r := range reasons {
			if !contains(job.Degraded, r) {
				job.Degraded = append(job.Degraded, r)
			}
		}
	})
}

// IDs returns the registered job ids, sorted.
func (m *Memory) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.jobs))
	for id := range m.jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Stages returns the stages recorded for jobID, in order.
func (m *Memory) Stages(jobID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.stages[jobID]...)
}

func (m *Memory) with(jobID string, fn func(*models.Job)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return fmt.Errorf("%s: %w", jobID, ErrNotFound)
	}
	fn(job)
	job.UpdatedAt = time.Now()
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
