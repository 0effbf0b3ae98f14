package observability

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestNewRequestIDReturnsUUID(t *testing.T) {
	id := NewRequestID()
	if id == "" {
		t.Fatal("expected non-empty request id")
	}

	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("expected valid UUID, got %q: %v", id, err)
	}
}

func TestRequestIDContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	want := "abc-123"

	ctx = ContextWithRequestID(ctx, want)
	got := RequestIDFromContext(ctx)

	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestRequestIDFromContextWhenMissingOrWrongType(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		got := RequestIDFromContext(context.Background())
		if got != "" {
			t.Fatalf("expected empty string, got %q", got)
		}
	})

	t.Run("wrong type", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), RequestIDKey, 42)
		got := RequestIDFromContext(ctx)
		if got != "" {
			t.Fatalf("expected empty string, got %q", got)
		}
	})
}

func TestRequestIDFromHeader(t *testing.T) {
	valid := uuid.New().String()

	tests := []struct {
		name     string
		header   string
		wantSame bool
	}{
		{name: "valid uuid kept", header: valid, wantSame: true},
		{name: "empty generates", header: "", wantSame: false},
		{name: "garbage replaced", header: "not-a-uuid; drop table", wantSame: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := RequestIDFromHeader(tc.header)
			if _, err := uuid.Parse(got); err != nil {
				t.Fatalf("expected valid UUID, got %q: %v", got, err)
			}
			if (got == tc.header) != tc.wantSame {
				t.Fatalf("header %q: got %q, expected same=%t", tc.header, got, tc.wantSame)
			}
		})
	}
}
