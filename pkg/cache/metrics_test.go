package cache

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestNamespaceMetrics(t *testing.T) {
	c := newTestCache(t)
	ns := WithNamespace(c, "metrics-test")

	hits := counterValue(t, NamespaceHitsTotal.WithLabelValues("metrics-test"))
	misses := counterValue(t, NamespaceMissesTotal.WithLabelValues("metrics-test"))

	ns.Get("0xabsent")
	if got := counterValue(t, NamespaceMissesTotal.WithLabelValues("metrics-test")); got != misses+1 {
		t.Errorf("misses = %v, want %v", got, misses+1)
	}

	ns.Set("0xpresent", true, time.Hour)
	c.Wait()
	if _, ok := ns.Get("0xpresent"); !ok {
		t.Skip("ristretto declined admission")
	}
	if got := counterValue(t, NamespaceHitsTotal.WithLabelValues("metrics-test")); got != hits+1 {
		t.Errorf("hits = %v, want %v", got, hits+1)
	}
}
