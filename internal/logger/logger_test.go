package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		level   string
		wantErr bool
	}{
		{"prod", "prod", "", false},
		{"local with level", "local", "debug", false},
		{"unknown env", "staging", "", true},
		{"invalid level", "local", "loud", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New("aurahub", tt.env, tt.level)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && l == nil {
				t.Fatal("New() returned nil logger without error")
			}
		})
	}
}

func TestFromContext_Fallback(t *testing.T) {
	if l := FromContext(context.Background()); l == nil {
		t.Fatal("FromContext() on empty context must return a usable logger")
	}
}

func TestContextRoundTrip(t *testing.T) {
	want := zap.NewNop()
	ctx := ContextWithLogger(context.Background(), want)
	if got := FromContext(ctx); got != want {
		t.Fatal("FromContext() did not return the stored logger")
	}
}
