package spreadsheet

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
)

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse renders every sheet as a "# name" header followed by its non-empty
// rows, cells joined by tabs.
func (p *Parser) Parse(ctx context.Context, data []byte, _ string) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "open spreadsheet", err)
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		wroteHeader := false
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, "\t"))
			if line == "" {
				continue
			}
			if !wroteHeader {
				if b.Len() > 0 {
					b.WriteString("\n\n")
				}
				b.WriteString("# " + sheet + "\n")
				wroteHeader = true
			} else {
				b.WriteString("\n")
			}
			b.WriteString(line)
		}
	}
	return b.String(), nil
}
