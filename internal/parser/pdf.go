package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
	"go.uber.org/zap"
)

// PDFParser extracts text page by page with unipdf.
type PDFParser struct {
	Logger *zap.Logger
}

// SetLicense installs a metered unidoc license key. Empty keys are ignored.
func SetLicense(key string) error {
	if key == "" {
		return nil
	}
	if err := license.SetMeteredKey(key); err != nil {
		return fmt.Errorf("set unidoc license: %w", err)
	}
	return nil
}

// Supports accepts .pdf files.
func (p *PDFParser) Supports(filename string) bool {
	return hasExt(filename, ".pdf")
}

// Parse joins the text of every readable page with blank lines.
// Unreadable pages are skipped with a warning.
func (p *PDFParser) Parse(ctx context.Context, r io.Reader, filename string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}

	reader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	numPages, err := reader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("count pdf pages: %w", err)
	}

	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var b strings.Builder
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("parse pdf: %w", err)
		}

		text, err := pageText(reader, i)
		if err != nil {
			logger.Warn("Skipping unreadable PDF page",
				zap.String("file", filename),
				zap.Int("page", i),
				zap.Error(err),
			)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
	}

	return b.String(), nil
}

func pageText(reader *model.PdfReader, n int) (string, error) {
	page, err := reader.GetPage(n)
	if err != nil {
		return "", fmt.Errorf("get page: %w", err)
	}
	ex, err := extractor.New(page)
	if err != nil {
		return "", fmt.Errorf("new extractor: %w", err)
	}
	text, err := ex.ExtractText()
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	return text, nil
}
