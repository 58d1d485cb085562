package cron

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Job is a unit of scheduled work. Name is used as the metrics label and log field.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

var (
	errNilJob       = errors.New("cron job is nil")
	errUnnamedJob   = errors.New("cron job name is required")
	errDuplicateJob = errors.New("cron job already registered")
)

// Registry holds jobs keyed by name, preserving registration order.
type Registry struct {
	order  []string
	byName map[string]Job
}

// NewRegistry registers every job, failing on the first invalid one.
func NewRegistry(jobs ...Job) (*Registry, error) {
	registry := &Registry{byName: make(map[string]Job, len(jobs))}
	for _, job := range jobs {
		if err := registry.Register(job); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Register adds a job. Names are trimmed and must be unique.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return errNilJob
	}
	name := strings.TrimSpace(job.Name())
	if name == "" {
		return errUnnamedJob
	}
	if r.byName == nil {
		r.byName = map[string]Job{}
	}
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("%w: %s", errDuplicateJob, name)
	}
	r.byName[name] = job
	r.order = append(r.order, name)
	return nil
}

// Lookup returns the job registered under name.
func (r *Registry) Lookup(name string) (Job, bool) {
	job, ok := r.byName[strings.TrimSpace(name)]
	return job, ok
}

// Jobs returns a copy of the registered jobs in registration order.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, 0, len(r.order))
	for _, name := range r.order {
		jobs = append(jobs, r.byName[name])
	}
	return jobs
}

// Names lists registered job names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}
