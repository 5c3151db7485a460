package core

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestExpvarMetricsRecorderAggregates(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	rec.Observe(context.Background(), "create_inbound_batch", true, 20*time.Millisecond)
	rec.Observe(context.Background(), "create_inbound_batch", true, 10*time.Millisecond)
	rec.Observe(context.Background(), "create_inbound_batch", false, 5*time.Millisecond)
	rec.Observe(context.Background(), "", true, time.Second) // ignored

	snap := rec.Snapshot()
	if got := snap.DurationsMS["create_inbound_batch"]; got != 35 {
		t.Fatalf("duration total = %v, want 35", got)
	}
	if got := snap.Results["create_inbound_batch"]["success"]; got != 2 {
		t.Fatalf("success count = %d, want 2", got)
	}
	if got := snap.Results["create_inbound_batch"]["error"]; got != 1 {
		t.Fatalf("error count = %d, want 1", got)
	}
	if rec.Name() == "" {
		t.Fatalf("generated name must not be empty")
	}
}

func TestJSONTracerRecordsSpans(t *testing.T) {
	buf := &bytes.Buffer{}
	tracer := NewJSONTracer(buf)

	_, span := tracer.Start(context.Background(), "resolve_chain")
	span.End(nil)
	_, span = tracer.Start(context.Background(), "summarize")
	span.End(context.DeadlineExceeded)

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(entries))
	}
	if entries[0].Operation != "resolve_chain" || entries[0].Status != "success" {
		t.Fatalf("unexpected first span %+v", entries[0])
	}
	if entries[1].Status != "error" || entries[1].Error == "" {
		t.Fatalf("unexpected second span %+v", entries[1])
	}

	var decoded JSONTraceEntry
	dec := json.NewDecoder(buf)
	if err := dec.Decode(&decoded); err != nil {
		t.Fatalf("decode first line: %v", err)
	}
	if decoded.Operation != "resolve_chain" {
		t.Fatalf("unexpected serialized span %+v", decoded)
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	rec.Observe(context.Background(), "create_fibre_pack", true, 15*time.Millisecond)
	rec.Observe(context.Background(), "create_fibre_pack", false, 5*time.Millisecond)

	expected := `
		# HELP fibretrace_service_operation_results_total Traceability service operation outcomes by status.
		# TYPE fibretrace_service_operation_results_total counter
		fibretrace_service_operation_results_total{operation="create_fibre_pack",status="error"} 1
		fibretrace_service_operation_results_total{operation="create_fibre_pack",status="success"} 1
	`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "fibretrace_service_operation_results_total"); err != nil {
		t.Fatalf("unexpected counter state: %v", err)
	}
}

func TestPrometheusMetricsRecorderDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPrometheusMetricsRecorder(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}

func TestServiceInstrumentation(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	tracer := NewJSONTracer(nil)
	svc := NewInMemoryService(NewDefaultRulesEngine(), WithMetricsRecorder(rec), WithTracer(tracer))

	mustCreateInbound(t, svc, "ravi")
	if _, err := svc.AuditLog(context.Background()); err != nil {
		t.Fatalf("audit log: %v", err)
	}

	snap := rec.Snapshot()
	if snap.Results["create_inbound_batch"]["success"] != 1 {
		t.Fatalf("create not observed: %+v", snap.Results)
	}
	if snap.Results["audit_log"]["success"] != 1 {
		t.Fatalf("query not observed: %+v", snap.Results)
	}

	var ops []string
	for _, entry := range tracer.Entries() {
		ops = append(ops, entry.Operation)
	}
	if len(ops) != 2 || ops[0] != "create_inbound_batch" || ops[1] != "audit_log" {
		t.Fatalf("unexpected spans %v", ops)
	}
}
