package otel

import (
	"context"
	"testing"
)

func TestSetupNoop(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		enabled  string
	}{
		{name: "no endpoint", endpoint: "", enabled: ""},
		{name: "disabled", endpoint: "http://localhost:4318", enabled: "false"},
		{name: "disabled mixed case", endpoint: "http://localhost:4318", enabled: "FALSE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvEndpoint, tt.endpoint)
			t.Setenv(EnvEnabled, tt.enabled)
			shutdown, err := Setup(context.Background(), "traps-test")
			if err != nil {
				t.Fatalf("Setup: %v", err)
			}
			if err := shutdown(context.Background()); err != nil {
				t.Fatalf("shutdown: %v", err)
			}
		})
	}
}

func TestSamplerFromEnv(t *testing.T) {
	tests := []struct {
		raw     string
		wantErr bool
	}{
		{raw: ""},
		{raw: "0.5"},
		{raw: "1"},
		{raw: "0", wantErr: true},
		{raw: "1.5", wantErr: true},
		{raw: "half", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Setenv(EnvSampleRatio, tt.raw)
			sampler, err := samplerFromEnv()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil || sampler == nil {
				t.Fatalf("sampler = %v, err = %v", sampler, err)
			}
		})
	}
}

func TestSetupRejectsBadRatio(t *testing.T) {
	t.Setenv(EnvEndpoint, "http://localhost:4318")
	t.Setenv(EnvEnabled, "")
	t.Setenv(EnvSampleRatio, "2")
	if _, err := Setup(context.Background(), "traps-test"); err == nil {
		t.Fatal("expected ratio error")
	}
}

func TestTracerStartsSpanWithoutProvider(t *testing.T) {
	_, span := Tracer("/traps/engine").Start(context.Background(), "trap.trigger")
	defer span.End()
	if span.SpanContext().IsSampled() {
		t.Fatal("no-op provider should not sample")
	}
}
