package supplicant

import (
	"testing"
	"time"
)

func TestLimiterAllowsBurstThenBlocks(t *testing.T) {
	l := newLimiter()
	now := time.Now()
	l.now = func() time.Time { return now }

	if !l.Allow() {
		t.Fatal("first attempt should be allowed")
	}

	now = now.Add(300 * time.Millisecond)
	if !l.Allow() {
		t.Fatal("second attempt past grace period should be allowed")
	}

	now = now.Add(300 * time.Millisecond)
	if l.Allow() {
		t.Fatal("third attempt within shortWindow should be blocked (shortBurst=2)")
	}
}

func TestLimiterGraceBlocksRapidRetry(t *testing.T) {
	l := newLimiter()
	now := time.Now()
	l.now = func() time.Time { return now }

	if !l.Allow() {
		t.Fatal("first attempt should be allowed")
	}
	now = now.Add(50 * time.Millisecond)
	if l.Allow() {
		t.Fatal("retry within 200ms grace should be blocked")
	}
}

func TestLimiterLongWindowCooldown(t *testing.T) {
	l := newLimiter()
	now := time.Now()
	l.now = func() time.Time { return now }

	l.Allow()
	now = now.Add(11 * time.Second)
	l.Allow()
	now = now.Add(11 * time.Second)
	if l.Allow() {
		t.Fatal("third attempt within 60s longWindow should trip the cooldown")
	}

	now = now.Add(9 * time.Second)
	if l.Allow() {
		t.Fatal("attempt during cooldown should be blocked")
	}

	now = now.Add(2 * time.Second)
	if !l.Allow() {
		t.Fatal("attempt after cooldown elapses should be allowed")
	}
}
