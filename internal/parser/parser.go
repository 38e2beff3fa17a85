// Package parser turns source files into documents ready for splitting.
package parser

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/domain"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/domain/document"
)

// Parser extracts plain text from one file format.
type Parser interface {
	Supports(filename string) bool
	Parse(ctx context.Context, r io.Reader, filename string) (string, error)
}

// Registry dispatches files to the first parser that supports them.
type Registry struct {
	parsers []Parser
}

// NewRegistry creates a registry over parsers, tried in order.
func NewRegistry(parsers ...Parser) *Registry {
	return &Registry{parsers: parsers}
}

// Default returns a registry with the text and PDF parsers.
func Default() *Registry {
	return NewRegistry(&TextParser{}, &PDFParser{})
}

// Supports reports whether any parser accepts filename.
func (r *Registry) Supports(filename string) bool {
	return r.find(filename) != nil
}

// ParseFile opens path, extracts its text and attaches metadata.
// Metadata without a source key gets the file base name.
func (r *Registry) ParseFile(ctx context.Context, path string, metadata map[string]string) (document.Document, error) {
	p := r.find(path)
	if p == nil {
		return document.Document{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, filepath.Ext(path))
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return document.Document{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	text, err := p.Parse(ctx, f, path)
	if err != nil {
		return document.Document{}, fmt.Errorf("parse %s: %w", path, err)
	}

	meta := make(map[string]string, len(metadata)+1)
	maps.Copy(meta, metadata)
	if meta[document.MetaSource] == "" {
		meta[document.MetaSource] = filepath.Base(path)
	}
	return document.New(text, meta), nil
}

func (r *Registry) find(filename string) Parser {
	for _, p := range r.parsers {
		if p.Supports(filename) {
			return p
		}
	}
	return nil
}

func hasExt(filename string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// TextParser reads plain text and markdown files verbatim.
type TextParser struct{}

// Supports accepts .txt and .md files.
func (p *TextParser) Supports(filename string) bool {
	return hasExt(filename, ".txt", ".md")
}

// Parse reads the whole stream.
func (p *TextParser) Parse(_ context.Context, r io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	return string(data), nil
}
