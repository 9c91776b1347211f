package services_test

import (
	"context"
	"testing"

	"rulecast/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithDocumentID(ctx, "doc-42")
	ctx = services.WithStage(ctx, "headings")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.DocumentIDFromContext(ctx); !ok || id != "doc-42" {
		t.Fatalf("unexpected document id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "headings" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithDocumentID(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.DocumentIDFromContext(ctx); ok {
		t.Fatal("expected no document id value")
	}
}
