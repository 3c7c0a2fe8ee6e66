package services

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/communityvault/backend/internal/platform/logger"
)

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"my notes (final).txt", "my_notes__final_.txt"},
		{"../../etc/passwd", "passwd"},
		{"видео.mp4", "_____.mp4"},
		{"", "upload"},
		{"..", "upload"},
	}
	for _, tc := range cases {
		if got := SanitizeFilename(tc.in); got != tc.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestBuildStorageKey(t *testing.T) {
	owner := uuid.New()
	key := BuildStorageKey(owner, "my file.pdf")

	if !strings.HasPrefix(key, owner.String()+"/") {
		t.Fatalf("expected key to be namespaced under owner id, got %q", key)
	}
	if !strings.HasSuffix(key, "-my_file.pdf") {
		t.Fatalf("expected sanitized filename suffix, got %q", key)
	}
}

func TestLocalBucketRoundTrip(t *testing.T) {
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	bucket, err := newLocalBucket(log, t.TempDir())
	if err != nil {
		t.Fatalf("newLocalBucket: %v", err)
	}
	ctx := context.Background()

	body := []byte("hello content vault")
	key := uuid.NewString() + "/1-note.txt"
	if err := bucket.Upload(ctx, key, bytes.NewReader(body), int64(len(body)), "text/plain"); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	rc, err := bucket.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, body) {
		t.Fatalf("round trip mismatch: %q", got)
	}

	u, err := bucket.ObjectURL(ctx, key)
	if err != nil {
		t.Fatalf("ObjectURL: %v", err)
	}
	if !strings.HasPrefix(u, "/uploads/") {
		t.Fatalf("expected local bucket URL under /uploads/, got %q", u)
	}

	if err := bucket.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := bucket.Open(ctx, key); err == nil {
		t.Fatalf("expected Open after Delete to fail")
	}
}

func TestLocalBucketRejectsTraversal(t *testing.T) {
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	bucket, err := newLocalBucket(log, t.TempDir())
	if err != nil {
		t.Fatalf("newLocalBucket: %v", err)
	}

	err = bucket.Upload(context.Background(), "../outside.txt", strings.NewReader("x"), 1, "text/plain")
	if err == nil {
		t.Fatalf("expected traversal key to be rejected")
	}
}
