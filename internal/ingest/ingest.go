// =============================================================================
// entrypilot - Spreadsheet Ingestion
// =============================================================================
//
// This module reads a batch of records from a spreadsheet. The first row
// with content is the header row; every following non-empty row becomes a
// record.
//
// SUPPORTED FORMATS:
//   - .xlsx: Office Open XML workbooks (excelize)
//   - .xls:  legacy BIFF workbooks (extrame/xls)
//   - .csv:  comma separated text
//
// COLUMN MATCHING:
//   Header names are matched case-insensitively with spaces removed, so
//   "Tran Code", "trancode" and "TranCode" all name the same column.
//
// VALIDATION:
//   - Application, Account, TranCode, Description, Amount and EffectiveDate
//     columns are required
//   - GL rows additionally require Branch and Center columns and values
//   - dates are normalized to MM/DD/YYYY, amounts to plain decimals
//
// =============================================================================

package ingest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/entrypilot/internal/types"
)

// ErrUnsupportedFormat is returned for files that are not xlsx, xls or csv.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Column names of the source sheet.
const (
	ColApplication   = "Application"
	ColAccount       = "Account"
	ColTranCode      = "TranCode"
	ColDescription   = "Description"
	ColAmount        = "Amount"
	ColEffectiveDate = "EffectiveDate"
	ColSerialNumber  = "SerialNumber"
	ColBranch        = "Branch"
	ColCenter        = "Center"
)

var requiredColumns = []string{ColApplication, ColAccount, ColTranCode, ColDescription, ColAmount, ColEffectiveDate}

var glColumns = []string{ColBranch, ColCenter}

// Extensions lists the file extensions ReadRecords accepts.
var Extensions = []string{".xlsx", ".xls", ".csv"}

// =============================================================================
// ENTRY POINT
// =============================================================================

// ReadRecords reads every record of the first worksheet of the file at path.
//
// PARAMETERS:
//   - path: The spreadsheet to read.
//
// RETURNS:
//   - The records in sheet order.
//   - An error describing the first problem found; nothing is returned
//     partially.
func ReadRecords(path string) ([]types.Record, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(path)
	case ".xls":
		rows, err = readXLS(path)
	case ".csv":
		rows, err = readCSV(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	return buildRecords(rows)
}

// =============================================================================
// RECORD BUILDING
// =============================================================================

// normalizeHeader removes spaces and folds case.
func normalizeHeader(h string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(h), " ", ""))
}

// buildRecords converts raw rows into validated records.
func buildRecords(rows [][]string) ([]types.Record, error) {
	headerIdx := -1
	for i, row := range rows {
		if !isRowEmpty(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, fmt.Errorf("worksheet is empty")
	}

	columns := make(map[string]int)
	for i, h := range rows[headerIdx] {
		key := normalizeHeader(h)
		if key == "" {
			continue
		}
		if _, dup := columns[key]; !dup {
			columns[key] = i
		}
	}

	var missing []string
	for _, c := range requiredColumns {
		if _, ok := columns[normalizeHeader(c)]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("The following required columns are missing: %s", strings.Join(missing, ", "))
	}

	cell := func(row []string, col string) string {
		idx, ok := columns[normalizeHeader(col)]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	records := make([]types.Record, 0, len(rows)-headerIdx-1)
	for i := headerIdx + 1; i < len(rows); i++ {
		row := rows[i]
		rowNum := i + 1

		rec := types.Record{
			Application:  cell(row, ColApplication),
			Account:      cell(row, ColAccount),
			TranCode:     cell(row, ColTranCode),
			Description:  cell(row, ColDescription),
			SerialNumber: cell(row, ColSerialNumber),
			Branch:       cell(row, ColBranch),
			Center:       cell(row, ColCenter),
		}

		if rec.IsGL() {
			var missingGL []string
			for _, c := range glColumns {
				if _, ok := columns[normalizeHeader(c)]; !ok {
					missingGL = append(missingGL, c)
				}
			}
			if len(missingGL) > 0 {
				return nil, fmt.Errorf("For 'GL' applications, the following columns are required but were not found: %s", strings.Join(missingGL, ", "))
			}
			if rec.Branch == "" || rec.Center == "" {
				return nil, fmt.Errorf("Row %d: For 'GL' applications, Branch and Center values are required.", rowNum)
			}
		}

		rec.EffectiveDate = normalizeDate(cell(row, ColEffectiveDate))
		rec.Amount = types.Amount(normalizeAmount(cell(row, ColAmount)))

		if isRecordEmpty(rec) {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func isRowEmpty(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func isRecordEmpty(r types.Record) bool {
	return r.Application == "" && r.Account == "" && r.TranCode == "" &&
		r.Description == "" && r.SerialNumber == "" && r.Branch == "" &&
		r.Center == "" && r.EffectiveDate == "" && r.Amount.IsBlank()
}
