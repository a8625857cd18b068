package metrics

import (
	"errors"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/foxzi/postq/internal/queue"
)

func TestNew(t *testing.T) {
	m := New()
	if m == nil {
		t.Fatal("New() returned nil")
	}

	if m.QueueMessages == nil {
		t.Error("QueueMessages is nil")
	}
	if m.QueueBytes == nil {
		t.Error("QueueBytes is nil")
	}
	if m.OldestSeconds == nil {
		t.Error("OldestSeconds is nil")
	}
	if m.LoadsTotal == nil {
		t.Error("LoadsTotal is nil")
	}
	if m.LoadFailuresTotal == nil {
		t.Error("LoadFailuresTotal is nil")
	}
	if m.ActionsTotal == nil {
		t.Error("ActionsTotal is nil")
	}
}

func TestObserveSnapshot(t *testing.T) {
	m := New()

	m.ObserveSnapshot(&queue.Summary{
		Total:  3,
		Bytes:  5001000,
		Oldest: time.Now().Add(-2 * time.Hour),
		ByStatus: map[queue.Status]int{
			queue.StatusActive:   2,
			queue.StatusDeferred: 1,
		},
	})

	gauge, err := m.QueueMessages.GetMetricWithLabelValues("active")
	if err != nil {
		t.Fatalf("Failed to get gauge: %v", err)
	}
	var metric dto.Metric
	if err := gauge.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Gauge.GetValue() != 2 {
		t.Errorf("Expected active gauge 2, got %f", metric.Gauge.GetValue())
	}

	var bytesMetric dto.Metric
	if err := m.QueueBytes.Write(&bytesMetric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if bytesMetric.Gauge.GetValue() != 5001000 {
		t.Errorf("Expected bytes gauge 5001000, got %f", bytesMetric.Gauge.GetValue())
	}

	var oldestMetric dto.Metric
	if err := m.OldestSeconds.Write(&oldestMetric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if got := oldestMetric.Gauge.GetValue(); got < 7100 || got > 7300 {
		t.Errorf("Expected oldest around 7200s, got %f", got)
	}
}

func TestObserveSnapshotResetsStaleStatuses(t *testing.T) {
	m := New()

	m.ObserveSnapshot(&queue.Summary{
		Total:    1,
		ByStatus: map[queue.Status]int{queue.StatusHeld: 1},
	})
	m.ObserveSnapshot(&queue.Summary{
		Total:    1,
		ByStatus: map[queue.Status]int{queue.StatusActive: 1},
	})

	gauge, err := m.QueueMessages.GetMetricWithLabelValues("held")
	if err != nil {
		t.Fatalf("Failed to get gauge: %v", err)
	}
	var metric dto.Metric
	if err := gauge.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Gauge.GetValue() != 0 {
		t.Errorf("Expected held gauge 0 after reset, got %f", metric.Gauge.GetValue())
	}
}

func TestObserveSnapshotEmptyQueue(t *testing.T) {
	m := New()

	m.ObserveSnapshot(&queue.Summary{ByStatus: map[queue.Status]int{}})

	var metric dto.Metric
	if err := m.OldestSeconds.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Gauge.GetValue() != 0 {
		t.Errorf("Expected oldest 0 for empty queue, got %f", metric.Gauge.GetValue())
	}
}

func TestObserveLoad(t *testing.T) {
	m := New()

	m.ObserveLoad(nil)
	m.ObserveLoad(nil)
	m.ObserveLoad(errors.New("boom"))

	var loads dto.Metric
	if err := m.LoadsTotal.Write(&loads); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if loads.Counter.GetValue() != 2 {
		t.Errorf("Expected loads 2, got %f", loads.Counter.GetValue())
	}

	var failures dto.Metric
	if err := m.LoadFailuresTotal.Write(&failures); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if failures.Counter.GetValue() != 1 {
		t.Errorf("Expected failures 1, got %f", failures.Counter.GetValue())
	}
}

func TestObserveAction(t *testing.T) {
	m := New()

	m.ObserveAction("hold", nil)
	m.ObserveAction("hold", nil)
	m.ObserveAction("hold", errors.New("boom"))

	counter, err := m.ActionsTotal.GetMetricWithLabelValues("hold", "success")
	if err != nil {
		t.Fatalf("Failed to get counter: %v", err)
	}
	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 2 {
		t.Errorf("Expected hold successes 2, got %f", metric.Counter.GetValue())
	}

	counter, err = m.ActionsTotal.GetMetricWithLabelValues("hold", "failure")
	if err != nil {
		t.Fatalf("Failed to get counter: %v", err)
	}
	var failMetric dto.Metric
	if err := counter.Write(&failMetric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if failMetric.Counter.GetValue() != 1 {
		t.Errorf("Expected hold failures 1, got %f", failMetric.Counter.GetValue())
	}
}
