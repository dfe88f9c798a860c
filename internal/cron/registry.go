package cron

import (
	"context"
	"slices"
	"time"

	"gorm.io/gorm"
)

// Job is one maintenance task run by the worker each cycle. Name labels its metrics and logs.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type clock func() time.Time

// Registry holds the jobs of one maintenance cycle, run in registration order.
type Registry struct {
	jobs []Job
}

func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{}
	for _, job := range jobs {
		r.Register(job)
	}
	return r
}

// Register appends job. A job whose name is already registered replaces the earlier one in
// place so two series never share a metric label. Nil jobs are ignored.
func (r *Registry) Register(job Job) {
	if job == nil {
		return
	}
	i := slices.IndexFunc(r.jobs, func(existing Job) bool { return existing.Name() == job.Name() })
	if i >= 0 {
		r.jobs[i] = job
		return
	}
	r.jobs = append(r.jobs, job)
}

func (r *Registry) Jobs() []Job {
	return slices.Clone(r.jobs)
}
