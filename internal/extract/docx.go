package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

const (
	docxDocumentXMLPath = "word/document.xml"
	contentTypesPath    = "[Content_Types].xml"
	docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

var (
	// wtTag matches <w:t>text</w:t> with any attributes.
	wtTag = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>`)
	// wpTag matches one paragraph; <w:pPr> is excluded by the attribute/close requirement.
	wpTag      = regexp.MustCompile(`(?s)<w:p(?:\s[^>]*[^/])?>(.*?)</w:p>`)
	wStyle     = regexp.MustCompile(`<w:pStyle\s+w:val="([^"]+)"`)
	partNameRe = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`)
	// partNameRe2 handles ContentType appearing before PartName.
	partNameRe2 = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`)
)

// findDocxMainDocumentPath reads the main document part name from [Content_Types].xml.
func findDocxMainDocumentPath(zr *zip.Reader) string {
	data, err := readZipFile(zr, contentTypesPath)
	if err != nil || data == nil {
		return ""
	}
	for _, re := range []*regexp.Regexp{partNameRe, partNameRe2} {
		if m := re.FindSubmatch(data); len(m) > 1 {
			return strings.TrimPrefix(string(m[1]), "/")
		}
	}
	return ""
}

// extractDOCX returns one paragraph per <w:p>. Numbered or bulleted paragraphs
// become list items and a Title or Heading1 paragraph becomes the title.
func extractDOCX(content []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("extract DOCX: not a zip: %w", err)
	}
	docPath := findDocxMainDocumentPath(zr)
	if docPath == "" {
		docPath = docxDocumentXMLPath
	}
	docXML, err := readZipFile(zr, docPath)
	if err != nil {
		return nil, fmt.Errorf("extract DOCX: %w", err)
	}
	if docXML == nil {
		return nil, fmt.Errorf("extract DOCX: %s not found", docPath)
	}

	doc := &Document{}
	var paras []string
	for _, p := range wpTag.FindAllSubmatch(docXML, -1) {
		body := p[1]
		var b strings.Builder
		for _, t := range wtTag.FindAllSubmatch(body, -1) {
			b.Write(t[1])
		}
		text := xmlText(b.String())
		if text == "" {
			continue
		}
		if s := wStyle.FindSubmatch(body); s != nil && doc.Title == "" {
			if style := string(s[1]); style == "Title" || style == "Heading1" {
				doc.Title = text
			}
		}
		if bytes.Contains(body, []byte("<w:numPr>")) {
			text = "- " + text
		}
		paras = append(paras, text)
	}
	doc.Text = joinParagraphs(paras)
	return doc, nil
}
