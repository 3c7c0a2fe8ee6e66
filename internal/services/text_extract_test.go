package services

import (
	"strings"
	"testing"

	"github.com/communityvault/backend/internal/domain"
)

func TestDetectFileType(t *testing.T) {
	cases := []struct {
		name string
		mime string
		data []byte
		want domain.FileType
	}{
		{"doc.pdf", "application/pdf", []byte("%PDF-1.7 rest"), domain.FileTypePDF},
		{"notes.txt", "text/plain", []byte("plain notes"), domain.FileTypeText},
		{"readme.md", "", []byte("# heading\nbody"), domain.FileTypeText},
		{"clip.mp4", "video/mp4", []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p'}, domain.FileTypeVideo},
		{"talk.mov", "", []byte{0x00, 0x01, 0x02}, domain.FileTypeVideo},
	}
	for _, tc := range cases {
		got, err := DetectFileType(tc.name, tc.mime, tc.data)
		if err != nil {
			t.Errorf("DetectFileType(%s): %v", tc.name, err)
			continue
		}
		if got != tc.want {
			t.Errorf("DetectFileType(%s) = %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestDetectFileTypeRejects(t *testing.T) {
	if _, err := DetectFileType("empty.txt", "text/plain", nil); err == nil {
		t.Errorf("expected empty file to be rejected")
	}
	if _, err := DetectFileType("fake.pdf", "application/pdf", []byte{0x00, 0x01, 0x02, 0x03}); err == nil {
		t.Errorf("expected pdf without %%PDF header to be rejected")
	}
	if _, err := DetectFileType("blob.bin", "application/octet-stream", []byte{0x00, 0xff, 0x00, 0xff}); err == nil {
		t.Errorf("expected unknown binary to be rejected")
	}
}

func TestExtractTextPlain(t *testing.T) {
	got, err := ExtractText(domain.FileTypeText, []byte("  hello\n\n  world\t!  "))
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if got != "hello world !" {
		t.Fatalf("expected collapsed whitespace, got %q", got)
	}
}

func TestExtractTextHTML(t *testing.T) {
	html := "<!DOCTYPE html><html><body><h1>Title</h1><p>Body &amp; more</p></body></html>"
	got, err := ExtractText(domain.FileTypeText, []byte(html))
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if !strings.Contains(got, "Title") || !strings.Contains(got, "Body & more") {
		t.Fatalf("expected tags stripped and entities decoded, got %q", got)
	}
	if strings.Contains(got, "<") {
		t.Fatalf("expected no tags in output, got %q", got)
	}
}

func TestExtractTextVideoUnsupported(t *testing.T) {
	if _, err := ExtractText(domain.FileTypeVideo, []byte{0x00}); err == nil {
		t.Fatalf("expected video extraction to be unsupported")
	}
}
