package cron

import (
	"context"
	"fmt"
	"sort"
)

// Job is one step of a cron cycle.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds jobs in run order, keyed by unique name.
type Registry struct {
	jobs  []Job
	index map[string]int
}

// NewRegistry registers jobs in order; nil jobs are skipped.
func NewRegistry(jobs ...Job) (*Registry, error) {
	registry := &Registry{index: map[string]int{}}
	for _, job := range jobs {
		if err := registry.Register(job); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Register appends job, rejecting a second job with the same name.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	if r.index == nil {
		r.index = map[string]int{}
	}
	name := job.Name()
	if _, exists := r.index[name]; exists {
		return fmt.Errorf("cron job %q registered twice", name)
	}
	r.index[name] = len(r.jobs)
	r.jobs = append(r.jobs, job)
	return nil
}

// Jobs returns a copy of the registered jobs in run order.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}

// Names lists job names alphabetically.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.jobs))
	for _, job := range r.jobs {
		names = append(names, job.Name())
	}
	sort.Strings(names)
	return names
}

// Select returns a registry limited to the named jobs, keeping run order.
// No names selects everything.
func (r *Registry) Select(names ...string) (*Registry, error) {
	if len(names) == 0 {
		return r, nil
	}
	wanted := map[string]bool{}
	for _, name := range names {
		if _, ok := r.index[name]; !ok {
			return nil, fmt.Errorf("unknown cron job %q (known: %v)", name, r.Names())
		}
		wanted[name] = true
	}
	selected := &Registry{index: map[string]int{}}
	for _, job := range r.jobs {
		if wanted[job.Name()] {
			_ = selected.Register(job)
		}
	}
	return selected, nil
}
