package registry

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/gpack/pkg/cache"
	"github.com/matzehuels/gpack/pkg/observability"
	"github.com/matzehuels/gpack/pkg/registry/registrytest"
)

type recordingHooks struct {
	observability.NoopCacheHooks
	observability.NoopHTTPHooks

	mu       sync.Mutex
	events   []string
	statuses []int
}

func (h *recordingHooks) add(event string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
}

func (h *recordingHooks) OnCacheHit(context.Context, string)      { h.add("hit") }
func (h *recordingHooks) OnCacheMiss(context.Context, string)     { h.add("miss") }
func (h *recordingHooks) OnCacheSet(context.Context, string, int) { h.add("set") }

func (h *recordingHooks) OnRequest(_ context.Context, _, _, path string) { h.add("GET " + path) }

func (h *recordingHooks) OnResponse(_ context.Context, _, _, _ string, status int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statuses = append(h.statuses, status)
}

func TestResolveEmitsHooks(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetCacheHooks(hooks)
	observability.SetHTTPHooks(hooks)
	t.Cleanup(observability.Reset)

	srv := registrytest.NewServer(t, registrytest.Package{Name: "left-pad", Version: "1.3.0"})
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	client := newTestClient(t, srv, fc)
	ctx := context.Background()

	for range 2 {
		if _, err := client.Resolve(ctx, "left-pad", "1.3.0"); err != nil {
			t.Fatalf("Resolve: %v", err)
		}
	}

	want := []string{"miss", "GET /left-pad/1.3.0", "set", "hit"}
	if len(hooks.events) != len(want) {
		t.Fatalf("events = %v, want %v", hooks.events, want)
	}
	for i := range want {
		if hooks.events[i] != want[i] {
			t.Errorf("events[%d] = %q, want %q", i, hooks.events[i], want[i])
		}
	}
	if len(hooks.statuses) != 1 || hooks.statuses[0] != http.StatusOK {
		t.Errorf("statuses = %v, want [200]", hooks.statuses)
	}
}
