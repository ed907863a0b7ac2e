package filetype

import (
	"strings"
	"testing"
	"time"

	"pad-sync-server/internal/domain"
)

func TestExtensionAndLanguage(t *testing.T) {
	tests := []struct {
		filename string
		ext      string
		code     bool
		lang     string
	}{
		{"main.go", "go", true, "go"},
		{"dir/App.TSX", "tsx", true, "tsx"},
		{"Makefile", "makefile", true, "makefile"},
		{"notes.yml", "yml", true, "yaml"},
		{"photo.png", "png", false, "text"},
		{"archive.tar.gz", "gz", false, "text"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := Extension(tt.filename); got != tt.ext {
				t.Errorf("Extension() = %q, want %q", got, tt.ext)
			}
			if got := IsCode(tt.filename); got != tt.code {
				t.Errorf("IsCode() = %v, want %v", got, tt.code)
			}
			if got := Language(tt.ext); got != tt.lang {
				t.Errorf("Language() = %q, want %q", got, tt.lang)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	pos := domain.Position{X: 80, Y: 90}

	tests := []struct {
		name     string
		text     string
		wantType domain.ItemType
		content  string
		filename string
	}{
		{"image url", "https://example.com/cat.PNG", domain.ItemTypeImage, "https://example.com/cat.PNG", "cat.PNG"},
		{"code tags", "see <code>a := 1</code> and <code class=\"x\">b()</code>", domain.ItemTypeCode, "a := 1\n\nb()", ""},
		{"plain text", "remember the milk", domain.ItemTypeText, "remember the milk", ""},
		{"non-image url", "https://example.com/page.html", domain.ItemTypeText, "https://example.com/page.html", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := Classify(tt.text, pos)
			if draft == nil {
				t.Fatal("Classify() = nil")
			}
			if draft.Type != tt.wantType || draft.Content != tt.content || draft.Filename != tt.filename {
				t.Errorf("Classify() = %+v", draft)
			}
			if draft.Position != pos {
				t.Errorf("Position = %+v, want %+v", draft.Position, pos)
			}
			if err := domain.Validate(draft); err != nil {
				t.Errorf("draft does not validate: %v", err)
			}
		})
	}

	if Classify("   \n", pos) != nil {
		t.Error("Classify() of blank text should be nil")
	}
}

func TestFromFile(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

	tests := []struct {
		name     string
		filename string
		data     []byte
		wantType domain.ItemType
		lang     string
		prefix   string
	}{
		{"go source", "cmd/main.go", []byte("package main\n\nfunc main() {}\n"), domain.ItemTypeCode, "go", "package main"},
		{"plain notes", "notes.rtf1", []byte("just some words\n"), domain.ItemTypeText, "", "just some"},
		{"png image", "dot.png", png, domain.ItemTypeImage, "", "data:image/png;base64,"},
		{"binary blob", "blob.bin", []byte{0x00, 0x01, 0x02, 0xff, 0xfe, 0x00}, domain.ItemTypeFile, "", "data:application/octet-stream;base64,"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft, err := FromFile(tt.filename, tt.data, domain.Position{})
			if err != nil {
				t.Fatalf("FromFile() error = %v", err)
			}
			if draft.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", draft.Type, tt.wantType)
			}
			if draft.Language != tt.lang {
				t.Errorf("Language = %q, want %q", draft.Language, tt.lang)
			}
			if !strings.HasPrefix(draft.Content, tt.prefix) {
				t.Errorf("Content = %.40q, want prefix %q", draft.Content, tt.prefix)
			}
			if draft.Size != int64(len(tt.data)) {
				t.Errorf("Size = %d, want %d", draft.Size, len(tt.data))
			}
		})
	}

	if _, err := FromFile("empty.txt", nil, domain.Position{}); err == nil {
		t.Error("FromFile() of empty data should fail")
	}
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 Bytes"},
		{512, "512 Bytes"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5 MB"},
		{1288490189, "1.2 GB"},
	}

	for _, tt := range tests {
		if got := FormatFileSize(tt.bytes); got != tt.want {
			t.Errorf("FormatFileSize(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestTimeRemaining(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		expires time.Time
		want    string
	}{
		{now.Add(5*time.Hour + 12*time.Minute + 30*time.Second), "5h 12m"},
		{now.Add(42 * time.Minute), "42m"},
		{now, "Expired"},
		{now.Add(-time.Minute), "Expired"},
	}

	for _, tt := range tests {
		if got := TimeRemaining(tt.expires, now); got != tt.want {
			t.Errorf("TimeRemaining(%s) = %q, want %q", tt.expires.Sub(now), got, tt.want)
		}
	}
}
