package extract

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	wordNS  = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`
	sheetNS = `xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"`
)

func writeArchive(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestDOCXParagraphs(t *testing.T) {
	path := writeArchive(t, map[string]string{
		"word/document.xml": fmt.Sprintf(`<w:document %s><w:body>
			<w:p><w:r><w:t>Hello</w:t></w:r></w:p>
			<w:p><w:r><w:t>   </w:t></w:r></w:p>
			<w:p><w:r><w:t>World</w:t></w:r></w:p>
		</w:body></w:document>`, wordNS),
	})
	text, err := DOCX(path)
	require.NoError(t, err)
	require.Equal(t, "Hello\nWorld", text)
}

func TestDOCXTabsAndBreaks(t *testing.T) {
	path := writeArchive(t, map[string]string{
		"word/document.xml": fmt.Sprintf(`<w:document %s><w:body>
			<w:p><w:r><w:t>a</w:t><w:tab/><w:t>b</w:t></w:r></w:p>
			<w:p><w:r><w:t>x</w:t><w:br/><w:t>y</w:t></w:r></w:p>
		</w:body></w:document>`, wordNS),
	})
	text, err := DOCX(path)
	require.NoError(t, err)
	require.Equal(t, "a\tb\nx\ny", text)
}

func TestDOCXPartOrdering(t *testing.T) {
	paragraph := func(content string) string {
		return fmt.Sprintf(`<w:document %s><w:body><w:p><w:r><w:t>%s</w:t></w:r></w:p></w:body></w:document>`, wordNS, content)
	}
	path := writeArchive(t, map[string]string{
		"word/footer1.xml":      paragraph("Foot"),
		"word/header1.xml":      paragraph("Head"),
		"word/document.xml":     paragraph("Body"),
		"word/_rels/rels.xml":   `<Relationships/>`,
		"word/styles.xml":       paragraph("Styles"),
		"customXml/ignored.xml": paragraph("Ignored"),
	})
	text, err := DOCX(path)
	require.NoError(t, err)
	require.Equal(t, "Body\n\nHead\n\nFoot\n\nStyles", text)
}

func TestDOCXFallbackWithoutParagraphs(t *testing.T) {
	path := writeArchive(t, map[string]string{
		"word/document.xml": fmt.Sprintf(`<w:document %s><w:t>alpha</w:t><w:t>beta</w:t></w:document>`, wordNS),
	})
	text, err := DOCX(path)
	require.NoError(t, err)
	require.Equal(t, "alpha\nbeta", text)
}

func TestDOCXEmptyDocument(t *testing.T) {
	path := writeArchive(t, map[string]string{
		"word/document.xml": fmt.Sprintf(`<w:document %s><w:body/></w:document>`, wordNS),
	})
	text, err := DOCX(path)
	require.NoError(t, err)
	require.Equal(t, "", text)
}

func TestDOCXInvalidArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.docx")
	require.NoError(t, os.WriteFile(path, []byte("this is not a zip"), 0o644))
	_, err := DOCX(path)
	require.Error(t, err)

	_, err = DOCX(filepath.Join(t.TempDir(), "missing.docx"))
	require.Error(t, err)
}

func TestDOCXUnparsableMainPart(t *testing.T) {
	path := writeArchive(t, map[string]string{
		"word/document.xml": `<w:document><w:body><unclosed`,
	})
	_, err := DOCX(path)
	require.Error(t, err)
}

func TestDOCXUnparsableSecondaryPartSkipped(t *testing.T) {
	path := writeArchive(t, map[string]string{
		"word/document.xml": fmt.Sprintf(`<w:document %s><w:body><w:p><w:r><w:t>Body</w:t></w:r></w:p></w:body></w:document>`, wordNS),
		"word/header1.xml":  `<w:hdr><broken`,
	})
	text, err := DOCX(path)
	require.NoError(t, err)
	require.Equal(t, "Body", text)
}

func TestXLSXSharedAndNumeric(t *testing.T) {
	path := writeArchive(t, map[string]string{
		"xl/sharedStrings.xml": fmt.Sprintf(`<sst %s><si><t>A</t></si><si><t>B</t></si></sst>`, sheetNS),
		"xl/worksheets/sheet1.xml": fmt.Sprintf(`<worksheet %s><sheetData>
			<row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1" t="s"><v>1</v></c></row>
			<row r="2"><c r="A2"><v>1</v></c><c r="B2"><v>2</v></c></row>
		</sheetData></worksheet>`, sheetNS),
	})
	text, err := XLSX(path)
	require.NoError(t, err)
	require.Equal(t, "Sheet 1 (sheet1)\nA | B\n1 | 2", text)
}

func TestXLSXInlineAndBool(t *testing.T) {
	path := writeArchive(t, map[string]string{
		"xl/worksheets/sheet1.xml": fmt.Sprintf(`<worksheet %s><sheetData>
			<row r="1">
				<c r="A1" t="inlineStr"><is><t>no</t><t>te</t></is></c>
				<c r="B1" t="b"><v>1</v></c>
				<c r="C1" t="b"><v>0</v></c>
			</row>
		</sheetData></worksheet>`, sheetNS),
	})
	text, err := XLSX(path)
	require.NoError(t, err)
	require.Equal(t, "Sheet 1 (sheet1)\nnote | TRUE | FALSE", text)
}

func TestXLSXSharedIndexEdgeCases(t *testing.T) {
	path := writeArchive(t, map[string]string{
		"xl/sharedStrings.xml": fmt.Sprintf(`<sst %s><si><t>ok</t></si></sst>`, sheetNS),
		"xl/worksheets/sheet1.xml": fmt.Sprintf(`<worksheet %s><sheetData>
			<row r="1">
				<c r="A1" t="s"><v> 0 </v></c>
				<c r="B1" t="s"><v>99</v></c>
				<c r="C1" t="s"><v>nope</v></c>
				<c r="D1"/>
			</row>
		</sheetData></worksheet>`, sheetNS),
	})
	text, err := XLSX(path)
	require.NoError(t, err)
	require.Equal(t, "Sheet 1 (sheet1)\nok", text)
}

func TestXLSXCellNormalization(t *testing.T) {
	long := strings.Repeat("x", 450)
	path := writeArchive(t, map[string]string{
		"xl/worksheets/sheet1.xml": fmt.Sprintf(`<worksheet %s><sheetData>
			<row r="1"><c r="A1" t="inlineStr"><is><t>  a
	b  </t></is></c></row>
			<row r="2"><c r="A2" t="inlineStr"><is><t>%s</t></is></c></row>
		</sheetData></worksheet>`, sheetNS, long),
	})
	text, err := XLSX(path)
	require.NoError(t, err)
	capped := strings.Repeat("x", 400) + "..."
	require.Equal(t, "Sheet 1 (sheet1)\na b\n"+capped, text)
}

func TestXLSXTruncation(t *testing.T) {
	var b strings.Builder
	fmt.Fprintf(&b, `<worksheet %s><sheetData>`, sheetNS)
	for i := 1; i <= 700; i++ {
		fmt.Fprintf(&b, `<row r="%d"><c><v>%d</v></c></row>`, i, i)
	}
	b.WriteString(`</sheetData></worksheet>`)
	path := writeArchive(t, map[string]string{"xl/worksheets/sheet1.xml": b.String()})

	text, err := XLSX(path)
	require.NoError(t, err)
	lines := strings.Split(text, "\n")
	require.Len(t, lines, 602)
	require.Equal(t, "Sheet 1 (sheet1)", lines[0])
	require.Equal(t, "600", lines[600])
	require.Equal(t, "[...] truncated", lines[601])
	require.NotContains(t, text, "\n601")
}

func TestXLSXTruncationAtExactCap(t *testing.T) {
	var b strings.Builder
	fmt.Fprintf(&b, `<worksheet %s><sheetData>`, sheetNS)
	for i := 1; i <= 600; i++ {
		fmt.Fprintf(&b, `<row r="%d"><c><v>%d</v></c></row>`, i, i)
	}
	b.WriteString(`</sheetData></worksheet>`)
	path := writeArchive(t, map[string]string{"xl/worksheets/sheet1.xml": b.String()})

	text, err := XLSX(path)
	require.NoError(t, err)
	lines := strings.Split(text, "\n")
	require.Len(t, lines, 602)
	require.Equal(t, "[...] truncated", lines[601])
}

func TestXLSXSheetOrderingAndNumbering(t *testing.T) {
	sheet := func(content string) string {
		return fmt.Sprintf(`<worksheet %s><sheetData><row r="1"><c t="inlineStr"><is><t>%s</t></is></c></row></sheetData></worksheet>`, sheetNS, content)
	}
	path := writeArchive(t, map[string]string{
		"xl/worksheets/sheet10.xml": sheet("ten"),
		"xl/worksheets/sheet2.xml":  fmt.Sprintf(`<worksheet %s><sheetData/></worksheet>`, sheetNS),
		"xl/worksheets/sheet1.xml":  sheet("one"),
	})
	text, err := XLSX(path)
	require.NoError(t, err)
	require.Equal(t, "Sheet 1 (sheet1)\none\n\nSheet 3 (sheet10)\nten", text)
}

func TestXLSXNoSheets(t *testing.T) {
	path := writeArchive(t, map[string]string{
		"[Content_Types].xml": `<Types/>`,
	})
	text, err := XLSX(path)
	require.NoError(t, err)
	require.Equal(t, "", text)
}

func TestXLSXInvalidArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("nope"), 0o644))
	_, err := XLSX(path)
	require.Error(t, err)
}

func TestXLSXFirstSheetUnparsable(t *testing.T) {
	path := writeArchive(t, map[string]string{
		"xl/worksheets/sheet1.xml": `<worksheet><sheetData><row`,
	})
	_, err := XLSX(path)
	require.Error(t, err)
}

func TestXLSXLaterSheetUnparsableSkipped(t *testing.T) {
	path := writeArchive(t, map[string]string{
		"xl/worksheets/sheet1.xml": fmt.Sprintf(`<worksheet %s><sheetData><row r="1"><c t="inlineStr"><is><t>ok</t></is></c></row></sheetData></worksheet>`, sheetNS),
		"xl/worksheets/sheet2.xml": `<worksheet><broken`,
	})
	text, err := XLSX(path)
	require.NoError(t, err)
	require.Equal(t, "Sheet 1 (sheet1)", strings.Split(text, "\n")[0])
	require.NotContains(t, text, "Sheet 2")
}
