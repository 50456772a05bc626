package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

const odfContentPath = "content.xml"

var (
	// odfBlock matches text:p and text:h elements; inner spans are stripped afterwards.
	odfBlock = regexp.MustCompile(`(?s)<text:(p|h)(?:\s[^>]*[^/])?>(.*?)</text:(?:p|h)>`)
	odfPage  = regexp.MustCompile(`(?s)<(?:draw:page|table:table-row)[\s>]`)
	xmlTag   = regexp.MustCompile(`<[^>]+>`)
)

// extractODF reads content.xml of an OpenDocument presentation or spreadsheet.
// Presentation pages and spreadsheet rows are separate paragraphs; the first
// heading (or first line of a presentation) is the title.
func extractODF(content []byte, ext string) (*Document, error) {
	kind := strings.ToUpper(strings.TrimPrefix(ext, "."))
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("extract %s: not a zip: %w", kind, err)
	}
	data, err := readZipFile(zr, odfContentPath)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", kind, err)
	}
	if data == nil {
		return nil, fmt.Errorf("extract %s: %s not found", kind, odfContentPath)
	}

	sections := odfPage.Split(string(data), -1)
	if len(sections) > 1 {
		sections = sections[1:]
	}
	sep := "\n"
	if ext == ".ods" {
		sep = " "
	}

	doc := &Document{}
	var blocks []string
	for _, sec := range sections {
		var lines []string
		for _, m := range odfBlock.FindAllStringSubmatch(sec, -1) {
			line := xmlText(xmlTag.ReplaceAllString(m[2], ""))
			if line == "" {
				continue
			}
			if doc.Title == "" && (m[1] == "h" || ext == ".odp") {
				doc.Title = line
			}
			lines = append(lines, line)
		}
		if len(lines) > 0 {
			blocks = append(blocks, strings.Join(lines, sep))
		}
	}
	doc.Text = strings.Join(blocks, "\n\n")
	return doc, nil
}
