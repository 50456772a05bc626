package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	// pptxSlideName matches slide parts and captures their number.
	pptxSlideName = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
	// atTag matches <a:t>text</a:t> with any attributes.
	atTag = regexp.MustCompile(`<a:t(?:\s[^>]*)?>([^<]*)</a:t>`)
	apTag = regexp.MustCompile(`(?s)<a:p(?:\s[^>]*[^/])?>(.*?)</a:p>`)
	// buTag marks a bulleted paragraph.
	buTag = regexp.MustCompile(`<a:bu(?:Char|AutoNum)\b`)
)

type pptxSlide struct {
	num  int
	file *zip.File
}

// extractPPTX returns the text of every slide in presentation order. Each
// <a:p> is a line; slides are separated by blank lines. The first line of the
// first slide is taken as the title.
func extractPPTX(content []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("extract PPTX: not a zip: %w", err)
	}
	var slides []pptxSlide
	for _, f := range zr.File {
		m := pptxSlideName.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		slides = append(slides, pptxSlide{num: n, file: f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	doc := &Document{}
	var blocks []string
	for _, s := range slides {
		data, err := readZipFile(zr, s.file.Name)
		if err != nil {
			return nil, fmt.Errorf("extract PPTX: %w", err)
		}
		var lines []string
		for _, p := range apTag.FindAllSubmatch(data, -1) {
			var b strings.Builder
			for _, t := range atTag.FindAllSubmatch(p[1], -1) {
				b.Write(t[1])
			}
			line := xmlText(b.String())
			if line == "" {
				continue
			}
			if doc.Title == "" {
				doc.Title = line
			}
			if buTag.Match(p[1]) {
				line = "- " + line
			}
			lines = append(lines, line)
		}
		if len(lines) > 0 {
			blocks = append(blocks, strings.Join(lines, "\n"))
		}
	}
	doc.Text = strings.Join(blocks, "\n\n")
	return doc, nil
}
