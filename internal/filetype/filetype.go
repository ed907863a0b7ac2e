// Package filetype turns pasted text and local files into item drafts.
package filetype

import (
	"encoding/base64"
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"pad-sync-server/internal/domain"

	"github.com/gabriel-vasile/mimetype"
)

var (
	DefaultTextDimensions  = domain.Dimensions{Width: 300, Height: 200}
	DefaultMediaDimensions = domain.Dimensions{Width: 400, Height: 300}
)

var languages = map[string]string{
	"js":            "javascript",
	"ts":            "typescript",
	"jsx":           "jsx",
	"tsx":           "tsx",
	"py":            "python",
	"java":          "java",
	"cpp":           "cpp",
	"c":             "c",
	"cs":            "csharp",
	"php":           "php",
	"rb":            "ruby",
	"go":            "go",
	"rs":            "rust",
	"swift":         "swift",
	"kt":            "kotlin",
	"html":          "html",
	"css":           "css",
	"scss":          "scss",
	"sass":          "sass",
	"less":          "less",
	"xml":           "xml",
	"json":          "json",
	"yaml":          "yaml",
	"yml":           "yaml",
	"toml":          "toml",
	"ini":           "ini",
	"cfg":           "ini",
	"sql":           "sql",
	"sh":            "bash",
	"bash":          "bash",
	"zsh":           "bash",
	"fish":          "bash",
	"ps1":           "powershell",
	"bat":           "batch",
	"cmd":           "batch",
	"dockerfile":    "dockerfile",
	"makefile":      "makefile",
	"md":            "markdown",
	"markdown":      "markdown",
	"txt":           "text",
	"log":           "text",
	"conf":          "text",
	"config":        "text",
	"env":           "text",
	"gitignore":     "text",
	"gitattributes": "text",
}

var (
	imageURLPattern = regexp.MustCompile(`(?i)^https?://.+\.(png|jpg|jpeg|gif|webp|svg|bmp|ico|tiff|dng|raw)$`)
	codeTagPattern  = regexp.MustCompile(`(?is)<code[^>]*>(.*?)</code>`)
)

// Extension is the lower-cased text after the last dot, or the whole base
// name when there is none ("Makefile" yields "makefile").
func Extension(filename string) string {
	base := filepath.Base(filename)
	if i := strings.LastIndex(base, "."); i >= 0 {
		base = base[i+1:]
	}
	return strings.ToLower(base)
}

func IsCode(filename string) bool {
	_, ok := languages[Extension(filename)]
	return ok
}

// Language maps an extension to a highlighter language, "text" if unknown.
func Language(ext string) string {
	if lang, ok := languages[strings.ToLower(ext)]; ok {
		return lang
	}
	return "text"
}

func IsImageURL(text string) bool {
	return imageURLPattern.MatchString(strings.TrimSpace(text))
}

// ExtractCode returns the bodies of every <code> element in text joined by a
// blank line, and false when there are none.
func ExtractCode(text string) (string, bool) {
	matches := codeTagPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return "", false
	}
	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = m[1]
	}
	return strings.Join(parts, "\n\n"), true
}

// Classify builds a draft for pasted text: image URLs become images, text
// wrapped in <code> tags becomes code, anything else is plain text. Blank
// input yields nil.
func Classify(text string, pos domain.Position) *domain.CreateItemRequest {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	if IsImageURL(text) {
		url := strings.TrimSpace(text)
		name := url[strings.LastIndex(url, "/")+1:]
		if name == "" {
			name = "image"
		}
		return &domain.CreateItemRequest{
			Type:       domain.ItemTypeImage,
			Content:    url,
			Filename:   name,
			Position:   pos,
			Dimensions: DefaultMediaDimensions,
		}
	}

	if code, ok := ExtractCode(text); ok {
		return &domain.CreateItemRequest{
			Type:       domain.ItemTypeCode,
			Content:    code,
			Language:   "text",
			Position:   pos,
			Dimensions: DefaultMediaDimensions,
		}
	}

	return &domain.CreateItemRequest{
		Type:       domain.ItemTypeText,
		Content:    text,
		Position:   pos,
		Dimensions: DefaultTextDimensions,
	}
}

// FromFile builds a draft for a file's contents. Images and other binary
// files are embedded as data URLs; recognised source files become code
// items with their language set.
func FromFile(filename string, data []byte, pos domain.Position) (*domain.CreateItemRequest, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%s is empty", filename)
	}

	mtype := mimetype.Detect(data)
	name := filepath.Base(filename)
	draft := &domain.CreateItemRequest{
		Filename:   name,
		Size:       int64(len(data)),
		Position:   pos,
		Dimensions: DefaultMediaDimensions,
	}

	switch {
	case strings.HasPrefix(mtype.String(), "image/"):
		draft.Type = domain.ItemTypeImage
		draft.Content = dataURL(mtype, data)
	case isText(mtype) && IsCode(name):
		draft.Type = domain.ItemTypeCode
		draft.Content = string(data)
		draft.Language = Language(Extension(name))
	case isText(mtype):
		draft.Type = domain.ItemTypeText
		draft.Content = string(data)
		draft.Dimensions = DefaultTextDimensions
	default:
		draft.Type = domain.ItemTypeFile
		draft.Content = dataURL(mtype, data)
	}

	return draft, nil
}

func isText(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

func dataURL(mtype *mimetype.MIME, data []byte) string {
	mediaType := strings.SplitN(mtype.String(), ";", 2)[0]
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// FormatFileSize renders a byte count with two decimals at most, e.g.
// "1.5 KB". Zero is "0 Bytes".
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	sizes := []string{"Bytes", "KB", "MB", "GB"}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(sizes) {
		i = len(sizes) - 1
	}
	v := float64(bytes) / math.Pow(1024, float64(i))
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64) + " " + sizes[i]
}

// TimeRemaining renders the time left before expiresAt as "5h 12m" or
// "42m", and "Expired" once it has passed.
func TimeRemaining(expiresAt, now time.Time) string {
	diff := expiresAt.Sub(now)
	if diff <= 0 {
		return "Expired"
	}
	hours := int(diff / time.Hour)
	minutes := int((diff % time.Hour) / time.Minute)
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
