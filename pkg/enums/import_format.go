package enums

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ImportFormat identifies the tabular encoding of a catalog import file.
type ImportFormat string

const (
	ImportFormatCSV  ImportFormat = "csv"
	ImportFormatXLSX ImportFormat = "xlsx"
)

// String implements fmt.Stringer.
func (f ImportFormat) String() string {
	return string(f)
}

// IsValid reports whether the value is a known ImportFormat.
func (f ImportFormat) IsValid() bool {
	return f == ImportFormatCSV || f == ImportFormatXLSX
}

// ImportFormatFromFileName infers the format from a file extension.
func ImportFormatFromFileName(name string) (ImportFormat, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	format := ImportFormat(ext)
	if !format.IsValid() {
		return "", fmt.Errorf("unsupported import file extension %q", filepath.Ext(name))
	}
	return format, nil
}
