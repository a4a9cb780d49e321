// Package extract pulls plain text out of OOXML containers. The files are
// treated as plain ZIP archives and the relevant XML parts are walked with a
// streaming tokenizer; no document library is involved.
package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
)

// docxPartOrder ranks the XML parts that can carry body text. The main
// document comes first, trailing parts sort by name.
var docxPartOrder = []string{
	"word/document.xml",
	"word/header",
	"word/footer",
	"word/footnotes.xml",
	"word/endnotes.xml",
	"word/comments.xml",
}

const docxPrimaryPart = "word/document.xml"

// DOCX extracts plain text from a .docx file. Paragraphs join with a
// newline, parts with a blank line. A well-formed but empty document yields
// ""; a file that is not a ZIP archive, or whose main document part fails to
// parse, is an error.
func DOCX(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer archive.Close()

	var chunks []string
	for _, part := range orderedDocxParts(&archive.Reader) {
		raw, err := readZipFile(part)
		if err != nil {
			continue
		}
		chunk, err := docxPartText(raw)
		if err != nil {
			if part.Name == docxPrimaryPart {
				return "", fmt.Errorf("parse %s: %w", part.Name, err)
			}
			continue
		}
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	return strings.TrimSpace(strings.Join(chunks, "\n\n")), nil
}

func orderedDocxParts(r *zip.Reader) []*zip.File {
	var parts []*zip.File
	for _, f := range r.File {
		if strings.HasPrefix(f.Name, "word/") && strings.HasSuffix(f.Name, ".xml") && !strings.HasPrefix(f.Name, "word/_rels/") {
			parts = append(parts, f)
		}
	}
	rank := func(name string) int {
		for i, prefix := range docxPartOrder {
			if strings.HasPrefix(name, prefix) {
				return i
			}
		}
		return len(docxPartOrder)
	}
	sort.SliceStable(parts, func(i, j int) bool {
		ri, rj := rank(parts[i].Name), rank(parts[j].Name)
		if ri != rj {
			return ri < rj
		}
		return parts[i].Name < parts[j].Name
	})
	return parts
}

// docxPartText walks one XML part. Paragraph elements delimit lines, text
// runs contribute their content verbatim, tab and break elements become the
// literal characters. A part without paragraph structure falls back to its
// text-bearing leaves, newline-joined.
func docxPartText(raw []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(raw))
	var (
		paragraphs []string
		leaves     []string
		run        strings.Builder
		leaf       strings.Builder
		pDepth     int
		inText     bool
	)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "p":
				if pDepth == 0 {
					run.Reset()
				}
				pDepth++
			case "t":
				inText = true
				leaf.Reset()
			case "tab":
				if pDepth > 0 {
					run.WriteByte('\t')
				}
			case "br", "cr":
				if pDepth > 0 {
					run.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "p":
				if pDepth == 1 {
					if text := strings.TrimSpace(run.String()); text != "" {
						paragraphs = append(paragraphs, text)
					}
				}
				if pDepth > 0 {
					pDepth--
				}
			case "t":
				inText = false
				if leaf.Len() > 0 {
					leaves = append(leaves, leaf.String())
				}
			}
		case xml.CharData:
			if inText {
				if pDepth > 0 {
					run.Write(el)
				}
				leaf.Write(el)
			}
		}
	}
	if len(paragraphs) > 0 {
		return strings.Join(paragraphs, "\n"), nil
	}
	return strings.TrimSpace(strings.Join(leaves, "\n")), nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
