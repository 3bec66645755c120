package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestContextRoundTrip(t *testing.T) {
	l := zap.NewNop()
	ctx := ContextWithLogger(context.Background(), l)
	if got := FromContext(ctx); got != l {
		t.Error("stored logger must come back out")
	}
}

func TestFromContext_MissingLoggerFallsBackToNop(t *testing.T) {
	if got := FromContext(context.Background()); got == nil {
		t.Fatal("FromContext must never return nil")
	}
}
