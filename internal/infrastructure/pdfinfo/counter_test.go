package pdfinfo

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/kirillkom/docnav/internal/core/domain"
)

// buildPDF writes a minimal PDF with a classic cross-reference table.
func buildPDF(pages int) []byte {
	var buf bytes.Buffer
	offsets := []int{}
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	kids := ""
	for i := 0; i < pages; i++ {
		kids += fmt.Sprintf("%d 0 R ", i+3)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, pages))
	for i := 0; i < pages; i++ {
		obj("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func TestCountPages(t *testing.T) {
	count, err := PageCounter{}.CountPages(domain.DocumentFile{Name: "a.pdf", Data: buildPDF(3)})
	if err != nil {
		t.Fatalf("CountPages() error = %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 pages, got %d", count)
	}
}

func TestCountPagesRejectsOtherPayloads(t *testing.T) {
	_, err := PageCounter{}.CountPages(domain.DocumentFile{ContentType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}})
	if !errors.Is(err, ErrNotPDF) {
		t.Fatalf("expected ErrNotPDF, got %v", err)
	}
}

func TestCountPagesReportsBrokenPDF(t *testing.T) {
	_, err := PageCounter{}.CountPages(domain.DocumentFile{Data: []byte("%PDF-1.7 truncated")})
	if err == nil {
		t.Fatalf("expected error for truncated pdf")
	}
}
