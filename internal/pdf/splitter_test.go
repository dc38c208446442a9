package pdf

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// minimalPDF builds a well-formed PDF with n blank letter-size pages.
func minimalPDF(n int) []byte {
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	kids := ""
	for i := 0; i < n; i++ {
		kids += fmt.Sprintf("%d 0 R ", 3+i)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, n))
	for i := 0; i < n; i++ {
		obj("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func TestSplit_PagesInOrder(t *testing.T) {
	pages, err := Splitter{TempDir: t.TempDir()}.Split(context.Background(), minimalPDF(3))
	require.NoError(t, err)
	require.Len(t, pages, 3)
	for i, p := range pages {
		n, err := api.PageCount(bytes.NewReader(p), nil)
		require.NoError(t, err, "page %d", i+1)
		assert.Equal(t, 1, n)
	}
}

func TestSplit_SinglePage(t *testing.T) {
	pages, err := Splitter{TempDir: t.TempDir()}.Split(context.Background(), minimalPDF(1))
	require.NoError(t, err)
	assert.Len(t, pages, 1)
}

func TestSplit_RejectsGarbage(t *testing.T) {
	_, err := Splitter{TempDir: t.TempDir()}.Split(context.Background(), []byte("not a pdf"))
	assert.Error(t, err)
}
