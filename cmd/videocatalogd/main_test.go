package main

import (
	"context"
	"testing"

	"github.com/videocatalog/videocatalog/internal/assistant"
	"github.com/videocatalog/videocatalog/internal/config"
	"github.com/videocatalog/videocatalog/internal/models"
)

func TestConcurrencyFor(t *testing.T) {
	tests := []struct {
		name     string
		settings config.SchedulerSettings
		resource models.ResourceClass
		want     int
	}{
		{
			name:     "configured value used",
			settings: config.SchedulerSettings{Concurrency: map[string]int{"heavy_ai_gpu": 1, "light_cpu": 4}},
			resource: models.ResourceLightCPU,
			want:     4,
		},
		{
			name:     "missing key falls back to 1",
			settings: config.SchedulerSettings{Concurrency: map[string]int{"light_cpu": 4}},
			resource: models.ResourceIOLight,
			want:     1,
		},
		{
			name:     "zero or negative configured value falls back to 1",
			settings: config.SchedulerSettings{Concurrency: map[string]int{"light_cpu": 0}},
			resource: models.ResourceLightCPU,
			want:     1,
		},
		{
			name:     "nil map falls back to 1",
			settings: config.SchedulerSettings{},
			resource: models.ResourceGPU,
			want:     1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := concurrencyFor(tt.settings, tt.resource); got != tt.want {
				t.Errorf("concurrencyFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTranscribeBatchHandlerGatesOnGPU(t *testing.T) {
	probe := assistant.NewGPUProbe(0)
	handler := transcribeBatchHandler(probe)
	err := handler(context.Background(), &models.Job{Kind: "transcribe_batch"})
	if err == nil {
		t.Error("expected an error when no GPU is available in this test environment")
	}
}
