package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	xlsxMaxRows      = 600
	xlsxMaxCellChars = 400

	xlsxTruncatedMark = "[...] truncated"
)

var sheetNumRegex = regexp.MustCompile(`sheet(\d+)\.xml$`)

// XLSX extracts a plain-text summary from a .xlsx workbook, one block per
// worksheet. Cells join with " | ", rows with a newline, and each sheet gets
// a "Sheet N (stem)" header; sheets that yield no text are skipped but still
// counted. A workbook with no worksheet parts yields ""; a file that is not
// a ZIP archive, or whose first worksheet fails to parse, is an error.
func XLSX(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open xlsx: %w", err)
	}
	defer archive.Close()

	parts := orderedSheetParts(&archive.Reader)
	if len(parts) == 0 {
		return "", nil
	}
	shared := readSharedStrings(&archive.Reader)

	var chunks []string
	for i, part := range parts {
		raw, err := readZipFile(part)
		if err != nil {
			continue
		}
		rows, err := sheetRows(raw, shared)
		if err != nil {
			if i == 0 {
				return "", fmt.Errorf("parse %s: %w", part.Name, err)
			}
			continue
		}
		if len(rows) == 0 {
			continue
		}
		chunks = append(chunks, fmt.Sprintf("Sheet %d (%s)\n%s", i+1, sheetStem(part.Name), strings.Join(rows, "\n")))
	}
	return strings.TrimSpace(strings.Join(chunks, "\n\n")), nil
}

// orderedSheetParts sorts worksheet parts by the numeric suffix in their
// name; unnumbered parts sort after all numbered ones.
func orderedSheetParts(r *zip.Reader) []*zip.File {
	var parts []*zip.File
	for _, f := range r.File {
		if strings.HasPrefix(f.Name, "xl/worksheets/") && strings.HasSuffix(f.Name, ".xml") {
			parts = append(parts, f)
		}
	}
	order := func(name string) int {
		if m := sheetNumRegex.FindStringSubmatch(name); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n
			}
		}
		return 10000
	}
	sort.SliceStable(parts, func(i, j int) bool {
		oi, oj := order(parts[i].Name), order(parts[j].Name)
		if oi != oj {
			return oi < oj
		}
		return parts[i].Name < parts[j].Name
	})
	return parts
}

// readSharedStrings loads the shared string table. Every si entry is
// appended, empty ones included, so cell indexes stay aligned. A missing or
// unparsable table resolves as empty.
func readSharedStrings(r *zip.Reader) []string {
	var file *zip.File
	for _, f := range r.File {
		if f.Name == "xl/sharedStrings.xml" {
			file = f
			break
		}
	}
	if file == nil {
		return nil
	}
	raw, err := readZipFile(file)
	if err != nil {
		return nil
	}

	decoder := xml.NewDecoder(bytes.NewReader(raw))
	var (
		strs    []string
		item    strings.Builder
		depth   int
		siDepth = -1
		inText  bool
	)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil
		}
		switch el := tok.(type) {
		case xml.StartElement:
			depth++
			switch el.Name.Local {
			case "si":
				if siDepth == -1 {
					siDepth = depth
					item.Reset()
				}
			case "t":
				if siDepth != -1 {
					inText = true
				}
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "si":
				if depth == siDepth {
					strs = append(strs, strings.TrimSpace(item.String()))
					siDepth = -1
				}
			case "t":
				inText = false
			}
			depth--
		case xml.CharData:
			if inText {
				item.Write(el)
			}
		}
	}
	return strs
}

// sheetRows walks one worksheet. Cells are direct children of their row and
// take their value from the first non-empty direct v child, except inline
// strings which collect every nested t. After the row cap is hit a
// truncation marker is appended and the rest of the part is only checked
// for well-formedness.
func sheetRows(raw []byte, shared []string) ([]string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(raw))
	var (
		rows      []string
		cells     []string
		cellType  string
		rawVal    strings.Builder
		inlineVal strings.Builder
		depth     int
		rowDepth  = -1
		cellDepth = -1
		haveValue bool
		inValue   bool
		inInline  bool
		truncated bool
	)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if truncated {
			continue
		}
		switch el := tok.(type) {
		case xml.StartElement:
			depth++
			switch el.Name.Local {
			case "row":
				if rowDepth == -1 {
					rowDepth = depth
					cells = cells[:0]
				}
			case "c":
				if rowDepth != -1 && depth == rowDepth+1 {
					cellDepth = depth
					cellType = attrValue(el, "t")
					rawVal.Reset()
					inlineVal.Reset()
					haveValue = false
				}
			case "v":
				if cellDepth != -1 && depth == cellDepth+1 && !haveValue {
					inValue = true
				}
			case "t":
				if cellDepth != -1 && cellType == "inlineStr" {
					inInline = true
				}
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "row":
				if depth == rowDepth {
					if len(cells) > 0 {
						rows = append(rows, strings.Join(cells, " | "))
					}
					if len(rows) >= xlsxMaxRows {
						rows = append(rows, xlsxTruncatedMark)
						truncated = true
					}
					rowDepth = -1
				}
			case "c":
				if depth == cellDepth {
					if value := resolveCellValue(cellType, rawVal.String(), inlineVal.String(), shared); value != "" {
						cells = append(cells, value)
					}
					cellDepth = -1
				}
			case "v":
				if inValue {
					inValue = false
					haveValue = rawVal.Len() > 0
				}
			case "t":
				inInline = false
			}
			depth--
		case xml.CharData:
			if inValue {
				rawVal.Write(el)
			}
			if inInline {
				inlineVal.Write(el)
			}
		}
	}
	return rows, nil
}

func resolveCellValue(cellType, raw, inline string, shared []string) string {
	if cellType == "inlineStr" {
		return normalizeCellText(inline)
	}
	if raw == "" {
		return ""
	}
	switch cellType {
	case "s":
		idx, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || idx < 0 || idx >= len(shared) {
			return ""
		}
		return normalizeCellText(shared[idx])
	case "b":
		if raw == "1" {
			return "TRUE"
		}
		return "FALSE"
	default:
		return normalizeCellText(raw)
	}
}

// normalizeCellText collapses all whitespace runs to single spaces and caps
// the result at xlsxMaxCellChars characters.
func normalizeCellText(s string) string {
	normalized := strings.Join(strings.Fields(s), " ")
	runes := []rune(normalized)
	if len(runes) > xlsxMaxCellChars {
		return string(runes[:xlsxMaxCellChars]) + "..."
	}
	return normalized
}

func attrValue(el xml.StartElement, name string) string {
	for _, attr := range el.Attr {
		if attr.Name.Local == name {
			return attr.Value
		}
	}
	return ""
}

func sheetStem(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, ".xml")
}
