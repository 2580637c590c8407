package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilManagerIsNoop(t *testing.T) {
	var m *Manager
	m.CacheHit()
	m.CacheMiss()
	m.RemoteRequest("issue", "ok")
	m.QuotaWait(time.Second)
	m.InstanceClassified("swe-bench", true)
	if err := m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")); err != nil {
		t.Fatalf("nil WriteTextfile: %v", err)
	}
}

func TestCountersAndTextfile(t *testing.T) {
	m := New()
	m.CacheHit()
	m.CacheHit()
	m.CacheMiss()
	m.RemoteRequest("issue", "ok")
	m.InstanceClassified("swe-bench", true)
	m.InstanceClassified("swe-bench", false)

	if got := testutil.ToFloat64(m.cacheHits); got != 2 {
		t.Errorf("cache hits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.records.WithLabelValues("swe-bench")); got != 1 {
		t.Errorf("records = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.instances.WithLabelValues("swe-bench")); got != 2 {
		t.Errorf("instances = %v, want 2", got)
	}

	path := filepath.Join(t.TempDir(), "run.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "swebench_analyzer_cache_hits_total 2") {
		t.Errorf("textfile missing cache hits:\n%s", data)
	}
}
