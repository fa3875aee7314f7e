package export

import "strings"

// Format identifies an export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Renderer encodes a dataset with an optional title.
type Renderer interface {
	Render(data Dataset, title string) ([]byte, error)
	ContentType() string
	Extension() string
}

// ParseFormat normalises a user supplied format. ok is false for unknown formats.
func ParseFormat(raw string) (Format, bool) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, true
	case FormatPDF:
		return FormatPDF, true
	case FormatXLSX, "excel":
		return FormatXLSX, true
	default:
		return "", false
	}
}

// NewRenderer returns the renderer for format.
func NewRenderer(format Format) (Renderer, bool) {
	switch format {
	case FormatCSV:
		return NewCSVExporter(), true
	case FormatPDF:
		return NewPDFExporter(), true
	case FormatXLSX:
		return NewXLSXExporter(), true
	default:
		return nil, false
	}
}

func rowValues(data Dataset, row map[string]string) []string {
	values := make([]string, len(data.Headers))
	for i, header := range data.Headers {
		values[i] = row[header]
	}
	return values
}
