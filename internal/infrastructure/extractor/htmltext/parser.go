package htmltext

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
)

const blockSelectors = "p, div, li, h1, h2, h3, h4, h5, h6, tr, section, article"

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse returns the visible text of an HTML page, one line per block
// element, with runs of whitespace collapsed.
func (p *Parser) Parse(_ context.Context, data []byte, contentType string) (string, error) {
	reader, err := charset.NewReader(bytes.NewReader(data), contentType)
	if err != nil {
		return "", domain.WrapError(domain.ErrUnsupportedMedia, "decode html", err)
	}
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "parse html", err)
	}

	doc.Find("script, style, noscript, template, head").Remove()
	doc.Find("br").Each(func(_ int, s *goquery.Selection) {
		s.ReplaceWithNodes(newline())
	})
	doc.Find(blockSelectors).Each(func(_ int, s *goquery.Selection) {
		s.AppendNodes(newline())
	})

	lines := strings.Split(doc.Text(), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if cleaned := strings.Join(strings.Fields(line), " "); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return strings.Join(out, "\n"), nil
}

func newline() *html.Node {
	return &html.Node{Type: html.TextNode, Data: "\n"}
}
