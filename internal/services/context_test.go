package services_test

import (
	"context"
	"testing"

	"emoroute/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-123")
	ctx = services.WithDataset(ctx, "ravdess")
	ctx = services.WithStage(ctx, "route")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-123" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if key, ok := services.DatasetFromContext(ctx); !ok || key != "ravdess" {
		t.Fatalf("unexpected dataset: %v %v", key, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "route" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithRunID(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.RunIDFromContext(ctx); ok {
		t.Fatal("expected no run id value")
	}
}
