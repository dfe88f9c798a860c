package cron

import (
	"context"
	"testing"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndIgnoresNil(t *testing.T) {
	retention := &stubJob{name: "outbox-retention"}
	reconcile := &stubJob{name: "index-reconcile"}
	registry := NewRegistry(retention, nil)
	registry.Register(nil)
	registry.Register(reconcile)

	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0] != Job(retention) || jobs[1] != Job(reconcile) {
		t.Fatalf("unexpected job order: %v", jobs)
	}

	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatal("Jobs must return a copy")
	}
}

func TestRegistryReplacesJobWithSameName(t *testing.T) {
	first := &stubJob{name: "index-reconcile"}
	other := &stubJob{name: "outbox-retention"}
	second := &stubJob{name: "index-reconcile"}
	registry := NewRegistry(first, other, second)

	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0] != Job(second) || jobs[1] != Job(other) {
		t.Fatalf("expected the later job to replace the first in place, got %v", jobs)
	}
}
