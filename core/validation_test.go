package core

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/signalsfoundry/sar-sensor-model/model"
)

// recordSpans installs a span recorder as the global tracer provider for the
// duration of the test.
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestValidateForward(t *testing.T) {
	m := newTestModel(t, "SLC", slcParam())

	report, err := m.ValidateForward(context.Background(), ForwardTolerance{Pixels: 1e-6})
	if err != nil {
		t.Fatalf("ValidateForward: %v", err)
	}
	if !report.OK || len(report.Residuals) != 9 {
		t.Fatalf("unexpected report: ok=%v residuals=%d", report.OK, len(report.Residuals))
	}
	for _, r := range report.Residuals {
		if r.HasTimes {
			t.Fatalf("GCP %s should not carry reference times", r.ID)
		}
	}

	gcps := m.GCPs()
	gcps[2].Row += 5
	shifted, err := NewSensorModel(context.Background(), "SLC", slcParam(), model.GCPParam{GCPs: gcps})
	if err != nil {
		t.Fatalf("NewSensorModel: %v", err)
	}
	report, err = shifted.ValidateForward(context.Background(), ForwardTolerance{Pixels: 1})
	if err != nil {
		t.Fatalf("ValidateForward: %v", err)
	}
	if report.OK {
		t.Fatalf("a GCP 5 lines off should fail validation")
	}
	for i, r := range report.Residuals {
		if r.OK != (i != 2) {
			t.Fatalf("residual %s ok=%v", r.ID, r.OK)
		}
	}
}

func TestValidateInverse(t *testing.T) {
	for _, productType := range []string{"SLC", "GRD"} {
		sar := slcParam()
		if productType == "GRD" {
			sar = grdParam()
		}
		m := newTestModel(t, productType, sar)

		report, err := m.ValidateInverse(context.Background(), 25)
		if err != nil {
			t.Fatalf("%s ValidateInverse: %v", productType, err)
		}
		if !report.OK {
			t.Fatalf("%s inverse validation failed: %+v", productType, report.Residuals)
		}
		// Odd-indexed GCPs are tested against even-indexed seeds.
		if len(report.Residuals) != 4 || report.Residuals[0].ID != "2" {
			t.Fatalf("%s tested %d GCPs starting at %q", productType, len(report.Residuals), report.Residuals[0].ID)
		}
		for _, r := range report.Residuals {
			if r.SquaredDistance > 1e-2 {
				t.Fatalf("%s GCP %s off by %v m²", productType, r.ID, r.SquaredDistance)
			}
		}
	}
}

func TestValidateInverseSingleGCP(t *testing.T) {
	sar := slcParam()
	gcps := gcpsFor(t, "SLC", sar, testGroundGrid()[4:5])
	m, err := NewSensorModel(context.Background(), "SLC", sar, model.GCPParam{GCPs: gcps})
	if err != nil {
		t.Fatalf("NewSensorModel: %v", err)
	}
	report, err := m.ValidateInverse(context.Background(), 25)
	if err != nil {
		t.Fatalf("ValidateInverse: %v", err)
	}
	if !report.OK || len(report.Residuals) != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestSensorModelSpans(t *testing.T) {
	sr := recordSpans(t)

	m := newTestModel(t, "SLC", slcParam())
	if _, err := m.ValidateForward(context.Background(), ForwardTolerance{Pixels: 1e-6}); err != nil {
		t.Fatalf("ValidateForward: %v", err)
	}
	if _, err := m.ValidateInverse(context.Background(), 25); err != nil {
		t.Fatalf("ValidateInverse: %v", err)
	}

	byName := make(map[string][]sdktrace.ReadOnlySpan)
	for _, span := range sr.Ended() {
		byName[span.Name()] = append(byName[span.Name()], span)
	}

	// One calibration for the reference model in gcpsFor and one for m.
	calib := byName["SensorModel.OptimizeTimeOffsetsFromGCPs"]
	if len(calib) != 2 {
		t.Fatalf("got %d calibration spans, want 2", len(calib))
	}
	if v, ok := spanAttr(calib[1], "sar.gcps"); !ok || v.AsInt64() != 9 {
		t.Fatalf("calibration span sar.gcps = %v", v.Emit())
	}
	if v, ok := spanAttr(calib[1], "sar.calibration_gcps"); !ok || v.AsInt64() != 0 {
		t.Fatalf("calibration span sar.calibration_gcps = %v", v.Emit())
	}

	for _, name := range []string{"SensorModel.ValidateForward", "SensorModel.ValidateInverse"} {
		spans := byName[name]
		if len(spans) != 1 {
			t.Fatalf("got %d %s spans, want 1", len(spans), name)
		}
		if v, ok := spanAttr(spans[0], "sar.validation_ok"); !ok || !v.AsBool() {
			t.Fatalf("%s sar.validation_ok = %v", name, v.Emit())
		}
	}
}
