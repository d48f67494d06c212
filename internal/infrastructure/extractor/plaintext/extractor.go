package plaintext

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
)

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes the declared charset of contentType (UTF-8 when none is
// declared) and rejects payloads that are still not valid UTF-8.
func (p *Parser) Parse(_ context.Context, data []byte, contentType string) (string, error) {
	raw := bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	if strings.Contains(strings.ToLower(contentType), "charset=") {
		reader, err := charset.NewReader(bytes.NewReader(raw), contentType)
		if err != nil {
			return "", domain.WrapError(domain.ErrUnsupportedMedia, "decode text", err)
		}
		decoded, err := io.ReadAll(reader)
		if err != nil {
			return "", fmt.Errorf("decode text: %w", err)
		}
		raw = decoded
	}

	if !utf8.Valid(raw) {
		return "", domain.WrapError(domain.ErrUnsupportedMedia, "decode text", fmt.Errorf("content is not valid UTF-8"))
	}
	return strings.TrimSpace(string(raw)), nil
}
