package storage_test

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"persistentstore/pkg/domain"
	"persistentstore/pkg/host"
	"persistentstore/pkg/storage"
)

func TestMetrics_CountsOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := storage.NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	s := m.Instrument(storage.NewMemoryStorage[string](), "mem")

	s.GetValue("k")
	s.SetValue("k", "v")
	s.GetValue("k")
	s.DeleteValue("k")

	want := `
# HELP persistentstore_storage_operations_total Storage operations by storage name and operation.
# TYPE persistentstore_storage_operations_total counter
persistentstore_storage_operations_total{op="delete",storage="mem"} 1
persistentstore_storage_operations_total{op="get",storage="mem"} 2
persistentstore_storage_operations_total{op="hit",storage="mem"} 1
persistentstore_storage_operations_total{op="set",storage="mem"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want), "persistentstore_storage_operations_total"); err != nil {
		t.Fatal(err)
	}

	again, err := storage.NewMetrics(reg)
	if err != nil {
		t.Fatalf("second NewMetrics: %v", err)
	}
	again.Instrument(storage.NewMemoryStorage[string](), "mem").SetValue("x", "y")
	if got, err := testutil.GatherAndCount(reg, "persistentstore_storage_operations_total"); err != nil || got != 4 {
		t.Fatalf("series = %d (%v), want 4", got, err)
	}
}

func TestMetrics_KeepsSelfUpdate(t *testing.T) {
	hub := host.NewMemoryHub()
	m, err := storage.NewMetrics(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	s := m.Instrument(storage.NewFactory(hub.Context()).LocalStorage(true), "local")

	su, ok := s.(domain.SelfUpdateStorage[string])
	if !ok {
		t.Fatal("instrumented storage lost SelfUpdateStorage")
	}
	calls := 0
	defer su.AddListener("k", func(domain.Change[string]) { calls++ })()

	storage.NewFactory(hub.Context()).LocalStorage(false).SetValue("k", "v")
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}
