package procsup

import (
	"context"
	"testing"
	"time"
)

func TestSpawnAndWaitCleanExit(t *testing.T) {
	p, err := Spawn(context.Background(), Spec{Path: "/bin/true"})
	if err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}
	if err := p.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if !p.Exited() {
		t.Fatal("Exited() = false after Wait()")
	}
}

func TestStopSendsSIGTERM(t *testing.T) {
	p, err := Spawn(context.Background(), Spec{
		Path:      "/bin/sleep",
		Args:      []string{"30"},
		KillGrace: 200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- p.Stop() }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Stop() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Stop() did not return in time")
	}
}

func TestStopIdempotentAfterExit(t *testing.T) {
	p, err := Spawn(context.Background(), Spec{Path: "/bin/true"})
	if err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}
	if err := p.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop() after exit error = %v", err)
	}
}
