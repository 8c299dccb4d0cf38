package daemon

import (
	"context"
	"testing"

	"docflow/internal/logging"
	"docflow/internal/testsupport"
	"docflow/internal/workflow"
)

func newDaemon(t *testing.T) *Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	engine := workflow.New(st, logging.NewNop())
	d, err := New(cfg, st, engine, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d
}

func TestDaemonStartStop(t *testing.T) {
	d := newDaemon(t)
	ctx := context.Background()

	status := d.Status(ctx)
	if status.Running {
		t.Fatal("daemon should not report running before start")
	}

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	if d.Addr() == "" {
		t.Fatal("daemon should expose a listen address after start")
	}
	status = d.Status(ctx)
	if !status.Running {
		t.Fatal("daemon should report running")
	}
	if status.DatabasePath == "" || status.LockFilePath == "" {
		t.Fatalf("status paths = %+v", status)
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("second start on a running daemon should fail")
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("daemon should report stopped")
	}
}

func TestDaemonLockExclusive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	engine := workflow.New(st, logging.NewNop())
	ctx := context.Background()

	first, err := New(cfg, st, engine, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start first: %v", err)
	}

	second, err := New(cfg, st, engine, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("second daemon acquired the lock while the first held it")
	}

	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("Start after release: %v", err)
	}
	second.Stop()
}
