package local

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"jobprep-backend/internal/shared/storage/object"
)

func TestSaveOpenDeleteRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := New(t.TempDir())

	obj, err := store.Save(ctx, "user-1", "cv.txt", "text/plain", strings.NewReader("Jane Doe"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if obj.Size != 8 || obj.ContentType != "text/plain" {
		t.Fatalf("unexpected object %+v", obj)
	}

	rc, err := store.Open(ctx, obj.Key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "Jane Doe" {
		t.Fatalf("unexpected content %q", data)
	}

	if err := store.Delete(ctx, obj.Key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Open(ctx, obj.Key); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, obj.Key); err != nil {
		t.Fatalf("second delete should be a no-op, got %v", err)
	}
}

func TestOpenRejectsTraversal(t *testing.T) {
	store := New(t.TempDir())
	if _, err := store.Open(context.Background(), "../../etc/passwd"); !errors.Is(err, object.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}
