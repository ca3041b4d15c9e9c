package telegram

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	blankLines  = regexp.MustCompile(`\n{3,}`)
	inlineSpace = regexp.MustCompile(`[ \t]+`)
)

// HTMLToText turns an HTML-fragment reply into plain text: paragraphs and
// headings become blank-line separated blocks, list items get a bullet and
// <br> becomes a newline. Text without tags is returned unchanged.
func HTMLToText(s string) string {
	if !strings.Contains(s, "<") || !strings.Contains(s, ">") {
		return s
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}

	doc.Find("script, style").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("li").Each(func(_ int, sel *goquery.Selection) {
		sel.PrependHtml("• ")
		sel.AppendHtml("\n")
	})
	doc.Find("p, div, h1, h2, h3, h4, h5, h6, ul, ol, blockquote, pre").Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml("\n\n")
	})

	lines := strings.Split(doc.Text(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(inlineSpace.ReplaceAllString(line, " "))
	}
	text := blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(text)
}
