// NagarAlert Hub - Civic Incident Reporting and Real-Time Area Alerts
// Copyright 2026 NagarAlert contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nagaralert/hub

package realtime

import (
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/nagaralert/hub/internal/logging"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "disabled",
		Format: "json",
		Output: io.Discard,
	})
}

// fakePusher records pushes and can be told to fail.
type fakePusher struct {
	mu     sync.Mutex
	pushes []interface{}
	failed bool
	closed int
}

func (f *fakePusher) Push(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failed {
		return errors.New("connection reset")
	}
	f.pushes = append(f.pushes, v)
	return nil
}

func (f *fakePusher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakePusher) pushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pushes)
}

func (f *fakePusher) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func TestRegisterAndCount(t *testing.T) {
	r := NewRegistry()
	if r.Count() != 0 {
		t.Fatalf("expected empty registry, got %d", r.Count())
	}

	r.Register("client-a", &fakePusher{})
	r.Register("client-b", &fakePusher{})

	if r.Count() != 2 {
		t.Errorf("expected 2 connections, got %d", r.Count())
	}

	ids := r.ClientIDs()
	if len(ids) != 2 || ids[0] != "client-a" || ids[1] != "client-b" {
		t.Errorf("unexpected client IDs %v", ids)
	}
}

func TestRegisterReplacesExistingConnection(t *testing.T) {
	r := NewRegistry()
	old := &fakePusher{}
	r.Register("client-a", old)
	r.SetSubscriptions("client-a", []string{"Sector 4"})

	r.Register("client-a", &fakePusher{})

	if r.Count() != 1 {
		t.Errorf("expected 1 connection after reconnect, got %d", r.Count())
	}
	if old.closeCount() != 1 {
		t.Errorf("expected old transport closed once, got %d", old.closeCount())
	}
	// Reconnect starts with a clean subscription slate.
	if areas := r.Subscriptions("client-a"); len(areas) != 0 {
		t.Errorf("expected no subscriptions after reconnect, got %v", areas)
	}
}

func TestUnregisterPusherIgnoresStaleTransport(t *testing.T) {
	r := NewRegistry()
	old := &fakePusher{}
	r.Register("client-a", old)

	replacement := &fakePusher{}
	r.Register("client-a", replacement)

	// The replaced connection's teardown must not touch the new entry.
	r.UnregisterPusher("client-a", old)
	if r.Count() != 1 {
		t.Fatalf("expected replacement to survive stale teardown, got %d", r.Count())
	}
	if replacement.closeCount() != 0 {
		t.Errorf("expected replacement transport left open, got %d closes", replacement.closeCount())
	}

	// The live transport's own teardown still removes the entry.
	r.UnregisterPusher("client-a", replacement)
	if r.Count() != 0 {
		t.Errorf("expected empty registry, got %d", r.Count())
	}
	if replacement.closeCount() != 1 {
		t.Errorf("expected exactly one close, got %d", replacement.closeCount())
	}
}

func TestSetSubscriptionsReplacesWholesale(t *testing.T) {
	r := NewRegistry()
	r.Register("client-a", &fakePusher{})

	r.SetSubscriptions("client-a", []string{"Sector 4", "Sector 5"})
	r.SetSubscriptions("client-a", []string{"Sector 9"})

	areas := r.Subscriptions("client-a")
	if len(areas) != 1 || areas[0] != "Sector 9" {
		t.Errorf("expected wholesale replacement to [Sector 9], got %v", areas)
	}

	if got := r.targets("Sector 4"); len(got) != 0 {
		t.Errorf("expected dropped area to match nothing, got %v", got)
	}
}

func TestSetSubscriptionsNormalizesWhitespace(t *testing.T) {
	r := NewRegistry()
	r.Register("client-a", &fakePusher{})

	r.SetSubscriptions("client-a", []string{"  Sector 4  ", "", "   "})

	areas := r.Subscriptions("client-a")
	if len(areas) != 1 || areas[0] != "Sector 4" {
		t.Errorf("expected trimmed single area, got %v", areas)
	}
}

func TestSetSubscriptionsUnknownClient(t *testing.T) {
	r := NewRegistry()
	// Must not panic or create a phantom entry.
	r.SetSubscriptions("ghost", []string{"Sector 4"})
	if r.Count() != 0 {
		t.Errorf("expected empty registry, got %d", r.Count())
	}
}

func TestUnregisterIsIdempotent(t *testing.T) {
	r := NewRegistry()
	p := &fakePusher{}
	r.Register("client-a", p)

	r.Unregister("client-a")
	r.Unregister("client-a")
	r.Unregister("never-registered")

	if r.Count() != 0 {
		t.Errorf("expected empty registry, got %d", r.Count())
	}
	if p.closeCount() != 1 {
		t.Errorf("expected exactly one close, got %d", p.closeCount())
	}
}

func TestTargetsMatchCaseInsensitively(t *testing.T) {
	r := NewRegistry()
	r.Register("client-a", &fakePusher{})
	r.SetSubscriptions("client-a", []string{"Sector 4"})

	for _, area := range []string{"Sector 4", "sector 4", "SECTOR 4", "  sector 4  "} {
		if got := r.targets(area); len(got) != 1 {
			t.Errorf("expected %q to match 1 client, got %d", area, len(got))
		}
	}

	if got := r.targets("Sector 5"); len(got) != 0 {
		t.Errorf("expected no match for different area, got %d", len(got))
	}
	if got := r.targets(""); len(got) != 0 {
		t.Errorf("expected empty area to match nothing, got %d", len(got))
	}
}

func TestConcurrentRegistryMutation(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n%26))
			r.Register(id, &fakePusher{})
			r.SetSubscriptions(id, []string{"Sector 4"})
			r.targets("Sector 4")
			r.Unregister(id)
		}(i)
	}
	wg.Wait()

	if r.Count() != 0 {
		t.Errorf("expected empty registry after churn, got %d", r.Count())
	}
}
