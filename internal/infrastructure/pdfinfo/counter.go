package pdfinfo

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/kirillkom/docnav/internal/core/domain"
	"github.com/kirillkom/docnav/internal/core/ports"
)

var _ ports.PageCounter = PageCounter{}

var ErrNotPDF = errors.New("payload is not a pdf")

// PageCounter reads the page tree of PDF payloads held in memory.
type PageCounter struct{}

func (PageCounter) CountPages(file domain.DocumentFile) (pages int, err error) {
	if !looksLikePDF(file) {
		return 0, ErrNotPDF
	}

	// the parser panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			pages, err = 0, fmt.Errorf("read pdf: %v", r)
		}
	}()

	reader, err := pdflib.NewReader(bytes.NewReader(file.Data), int64(len(file.Data)))
	if err != nil {
		return 0, fmt.Errorf("read pdf: %w", err)
	}
	return reader.NumPage(), nil
}

func looksLikePDF(file domain.DocumentFile) bool {
	if bytes.HasPrefix(file.Data, []byte("%PDF-")) {
		return true
	}
	return strings.EqualFold(file.ContentType, "application/pdf") && len(file.Data) > 0
}
