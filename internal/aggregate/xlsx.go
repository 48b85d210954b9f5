package aggregate

import (
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/screener-cli/internal/model"
)

// writeXLSX writes the flattened projection as a single-sheet workbook.
func (a *Aggregator) writeXLSX(name string, outs []*model.Outcome) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Qualified")
	if err != nil {
		return eris.Wrap(err, "aggregate: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range headerRow() {
		header.AddCell().Value = h
	}

	for _, o := range outs {
		row := sheet.AddRow()
		for _, val := range flattenRow(o) {
			row.AddCell().Value = val
		}
	}

	return eris.Wrapf(f.Save(filepath.Join(a.outDir, name)), "aggregate: save %s", name)
}
