package cron

import (
	"context"
	"errors"
	"testing"
)

type namedJob string

func (n namedJob) Name() string              { return string(n) }
func (n namedJob) Run(context.Context) error { return nil }

func TestRegistryKeepsRegistrationOrder(t *testing.T) {
	registry, err := NewRegistry(namedJob("sweep"), namedJob("reconcile"))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if err := registry.Register(namedJob("audit")); err != nil {
		t.Fatalf("Register: %v", err)
	}

	names := registry.Names()
	want := []string{"sweep", "reconcile", "audit"}
	if len(names) != len(want) {
		t.Fatalf("expected %d names, got %v", len(want), names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("name %d: want %q, got %q", i, want[i], names[i])
		}
	}

	jobs := registry.Jobs()
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatal("Jobs must return a copy")
	}
	if job, ok := registry.Lookup(" reconcile "); !ok || job.Name() != "reconcile" {
		t.Fatalf("lookup reconcile: ok=%v", ok)
	}
}

func TestRegistryRejectsInvalidJobs(t *testing.T) {
	registry, err := NewRegistry(namedJob("sweep"))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if err := registry.Register(nil); !errors.Is(err, errNilJob) {
		t.Fatalf("nil job: got %v", err)
	}
	if err := registry.Register(namedJob("  ")); !errors.Is(err, errUnnamedJob) {
		t.Fatalf("blank name: got %v", err)
	}
	if err := registry.Register(namedJob("sweep")); !errors.Is(err, errDuplicateJob) {
		t.Fatalf("duplicate: got %v", err)
	}
	if _, err := NewRegistry(namedJob("a"), namedJob("a")); err == nil {
		t.Fatal("expected NewRegistry to reject duplicates")
	}
}
