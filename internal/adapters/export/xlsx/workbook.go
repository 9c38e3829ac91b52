// Package xlsx writes customer records as a single sheet workbook.
package xlsx

import (
	"bytes"

	"github.com/xuri/excelize/v2"

	"github.com/phenrril/expressbi/internal/domain"
)

type Encoder struct{}

// Table derives the header row from the union of the record keys, in first
// appearance order, and aligns each record under it. Missing values are nil.
func Table(records []domain.Customer) ([]string, [][]any) {
	var headers []string
	col := map[string]int{}
	for _, r := range records {
		for _, f := range r.Fields() {
			if _, ok := col[f.Key]; !ok {
				col[f.Key] = len(headers)
				headers = append(headers, f.Key)
			}
		}
	}
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		row := make([]any, len(headers))
		for _, f := range r.Fields() {
			row[col[f.Key]] = f.Value
		}
		rows = append(rows, row)
	}
	return headers, rows
}

// Encode builds the workbook in memory so a failure never leaves a partial file.
func (Encoder) Encode(sheet string, records []domain.Customer) ([]byte, error) {
	headers, rows := Table(records)

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, err
	}
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return nil, err
	}
	head := make([]any, len(headers))
	for i, h := range headers {
		head[i] = h
	}
	if err := sw.SetRow("A1", head); err != nil {
		return nil, err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return nil, err
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
