package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestMemoryPutReplacesAndGetCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if _, err := m.Put(ctx, "zones/a.png", strings.NewReader("one"), "image/png"); err != nil {
		t.Fatalf("put: %v", err)
	}
	info, err := m.Put(ctx, "zones/a.png", strings.NewReader("second"), "image/png")
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if info.Size != 6 {
		t.Fatalf("size %d", info.Size)
	}
	_, rc, err := m.Get(ctx, "zones/a.png")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != "second" {
		t.Fatalf("body %q", body)
	}
}

func TestMemoryMissingAndPresign(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if _, _, err := m.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get: %v", err)
	}
	if err := m.Delete(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete: %v", err)
	}
	if _, err := m.PresignURL(ctx, "nope", 0); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("presign: %v", err)
	}
}

func TestNewS3RequiresBucket(t *testing.T) {
	if _, err := NewS3(context.Background(), S3Config{}); err == nil {
		t.Fatal("expected error without bucket")
	}
}
