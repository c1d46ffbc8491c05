// Package exportfile writes and reads note exports as Markdown files with
// YAML front matter.
package exportfile

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hpungsan/vodnote/internal/entry"
	"github.com/hpungsan/vodnote/internal/errors"
	"github.com/hpungsan/vodnote/internal/logtext"
)

const frontMatterFence = "---"

// maxFileSize caps what Read will load.
const maxFileSize = 4 << 20

// Header is the front matter block.
type Header struct {
	VideoID    string    `yaml:"video_id,omitempty"`
	SourceURL  string    `yaml:"source_url,omitempty"`
	ExportedAt time.Time `yaml:"exported_at"`
	Count      int       `yaml:"count"`
}

// Document is a parsed export file.
type Document struct {
	Header Header
	Body   string
}

// Render produces the file content for entries.
func Render(h Header, entries []entry.Entry) ([]byte, error) {
	h.Count = len(entries)
	front, err := yaml.Marshal(h)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("encode front matter: %w", err))
	}

	var buf bytes.Buffer
	buf.WriteString(frontMatterFence + "\n")
	buf.Write(front)
	buf.WriteString(frontMatterFence + "\n\n")
	if body := logtext.FormatBody(entries); body != "" {
		buf.WriteString(body)
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}

// Write renders entries into dir/name atomically and returns the final path.
// An existing file at that path is replaced.
func Write(dir, name string, h Header, entries []entry.Entry) (string, error) {
	path, err := Resolve(dir, name, false)
	if err != nil {
		return "", err
	}
	data, err := Render(h, entries)
	if err != nil {
		return "", err
	}

	if err := writeAtomic(path, data); err != nil {
		return "", errors.NewInternal(err)
	}
	return path, nil
}

// Read loads an export file from dir.
func Read(dir, name string) (*Document, error) {
	path, err := Resolve(dir, name, true)
	if err != nil {
		return nil, err
	}

	f, err := openNoFollow(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxFileSize+1))
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if len(data) > maxFileSize {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("file exceeds %d bytes", maxFileSize))
	}
	return Parse(string(data))
}

// Parse splits content into front matter and body. Content without front
// matter is all body.
func Parse(content string) (*Document, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	if !strings.HasPrefix(content, frontMatterFence+"\n") {
		return &Document{Body: content}, nil
	}

	rest := content[len(frontMatterFence)+1:]
	end := strings.Index(rest, "\n"+frontMatterFence+"\n")
	var front, body string
	switch {
	case end >= 0:
		front = rest[:end+1]
		body = rest[end+len(frontMatterFence)+2:]
	case strings.HasSuffix(rest, "\n"+frontMatterFence):
		front = strings.TrimSuffix(rest, frontMatterFence)
	default:
		return nil, errors.NewInvalidRequest("unterminated front matter")
	}

	doc := &Document{Body: strings.TrimLeft(body, "\n")}
	if err := yaml.Unmarshal([]byte(front), &doc.Header); err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid front matter: %v", err))
	}
	return doc, nil
}
