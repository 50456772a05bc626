// Package extract turns slide and handout files into plain text.
package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Document is the text of one file. Paragraphs are separated by blank lines;
// list items are single lines starting with "- ".
type Document struct {
	// Title is the heading found in the file, if any.
	Title string
	Text  string
}

// Extractor extracts plain text from slide files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Supported lists the extensions with a dedicated extractor.
var Supported = []string{".txt", ".md", ".markdown", ".pdf", ".docx", ".odt", ".rtf", ".xlsx", ".pptx", ".odp", ".ods"}

// Extract reads the file at path and returns its text.
func (e *Extractor) Extract(path string) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".odt" || ext == ".rtf" {
		return extractCat(path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf"). Unknown extensions are
// read as plain text.
func (e *Extractor) ExtractBytes(content []byte, ext string) (*Document, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".odt", ".rtf":
		return extractCatBytes(content, ext)
	case ".xlsx":
		return extractExcel(content)
	case ".pptx":
		return extractPPTX(content)
	case ".odp", ".ods":
		return extractODF(content, ext)
	case ".md", ".markdown":
		return extractMarkdown(content)
	default:
		return &Document{Text: strings.TrimSpace(validUTF8(content))}, nil
	}
}

func validUTF8(content []byte) string {
	if !utf8.Valid(content) {
		return strings.ToValidUTF8(string(content), "\ufffd")
	}
	return string(content)
}

// readZipFile returns the named member of an OOXML/ODF package, or nil when absent.
func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		var buf bytes.Buffer
		_, err = buf.ReadFrom(rc)
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		return buf.Bytes(), nil
	}
	return nil, nil
}

// xmlText unescapes entities and collapses whitespace in an XML text node.
func xmlText(s string) string {
	return strings.Join(strings.Fields(html.UnescapeString(s)), " ")
}

// joinParagraphs joins paragraphs with blank lines, keeping consecutive list items on adjacent lines.
func joinParagraphs(paras []string) string {
	var b strings.Builder
	prevItem := false
	for _, p := range paras {
		if p == "" {
			continue
		}
		item := strings.HasPrefix(p, "- ")
		if b.Len() > 0 {
			if item && prevItem {
				b.WriteByte('\n')
			} else {
				b.WriteString("\n\n")
			}
		}
		b.WriteString(p)
		prevItem = item
	}
	return b.String()
}
