package textextract

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// extractXLSX renders every sheet as tab-separated rows under a sheet header.
func extractXLSX(data []byte) (string, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return "", eris.Wrap(err, "textextract: open xlsx")
	}

	var b strings.Builder
	for _, sheet := range f.Sheets {
		b.WriteString("## ")
		b.WriteString(sheet.Name)
		b.WriteByte('\n')
		for _, row := range sheet.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				cells = append(cells, cell.String())
			}
			line := strings.TrimRight(strings.Join(cells, "\t"), "\t")
			if line == "" {
				continue
			}
			b.WriteString(line)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	return b.String(), nil
}
