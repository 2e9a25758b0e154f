package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// ErrUnreadable marks documents the PDF reader could not parse.
var ErrUnreadable = errors.New("pdf could not be read")

// PDFExtractor turns PDF bytes into plain text using github.com/ledongthuc/pdf.
// The zero value is ready to use.
type PDFExtractor struct {
	// MaxPages limits how many pages are read; zero reads all pages.
	MaxPages int
}

// ExtractText returns the best-effort plain text of doc. An empty result is not an error.
// Parser panics on malformed input are recovered and reported as ErrUnreadable.
func (e PDFExtractor) ExtractText(ctx context.Context, doc []byte) (text string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(doc) == 0 {
		return "", fmt.Errorf("%w: empty document", ErrUnreadable)
	}

	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = fmt.Errorf("%w: %v", ErrUnreadable, rec)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(doc), int64(len(doc)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if e.MaxPages > 0 && reader.NumPage() > e.MaxPages {
		return extractPages(ctx, reader, e.MaxPages)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return buf.String(), nil
}

func extractPages(ctx context.Context, reader *pdf.Reader, limit int) (string, error) {
	fonts := make(map[string]*pdf.Font)
	var buf bytes.Buffer
	for i := 1; i <= limit; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := page.Font(name)
				fonts[name] = &f
			}
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			return "", fmt.Errorf("%w: page %d: %v", ErrUnreadable, i, err)
		}
		buf.WriteString(text)
	}
	return buf.String(), nil
}
