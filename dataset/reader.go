package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/YuminosukeSato/salesforecast/pkg/errors"
	"github.com/YuminosukeSato/salesforecast/pkg/log"
)

// ReadFromTextFile reads product rows from a delimited text file.
// With hasHeader, columns are located by header name (case-insensitive, any
// order); otherwise DefaultColumnOrder is assumed.
func ReadFromTextFile(path string, hasHeader bool, sep rune) ([]ProductData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open dataset %s", path)
	}
	defer f.Close()

	return ReadFrom(f, path, hasHeader, sep)
}

// ReadFrom reads product rows from r. name is only used in error messages.
func ReadFrom(r io.Reader, name string, hasHeader bool, sep rune) ([]ProductData, error) {
	cr := csv.NewReader(r)
	cr.Comma = sep
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = false

	var (
		records [][]string
		lines   []int
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return nil, errors.NewDataFormatError(name, perr.Line, "", perr.Err.Error())
			}
			return nil, errors.Wrapf(err, "read dataset %s", name)
		}
		line, _ := cr.FieldPos(0)
		records = append(records, rec)
		lines = append(lines, line)
	}
	rows, err := parseRecords(name, records, lines, hasHeader)
	if err != nil {
		return nil, err
	}
	log.GetLoggerWithName("dataset").Info("Dataset loaded",
		log.DataPathKey, name,
		log.SamplesKey, len(rows),
	)
	return rows, nil
}

// ReadFromExcel reads product rows from the first sheet of an .xlsx workbook.
// The first row must be a header.
func ReadFromExcel(path string) ([]ProductData, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open workbook %s", path)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.NewDataFormatError(path, 0, "", "workbook has no sheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrapf(err, "read sheet %s of %s", sheets[0], path)
	}
	rows, err := parseRecords(path, records, nil, true)
	if err != nil {
		return nil, err
	}
	log.GetLoggerWithName("dataset").Info("Dataset loaded",
		log.DataPathKey, path,
		log.SamplesKey, len(rows),
		"sheet", sheets[0],
	)
	return rows, nil
}

// Load reads a dataset, choosing the reader by file extension. Files other
// than .xlsx are treated as comma-separated text with a header row.
func Load(path string) ([]ProductData, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ReadFromExcel(path)
	case ".tsv":
		return ReadFromTextFile(path, true, '\t')
	default:
		return ReadFromTextFile(path, true, ',')
	}
}

// parseRecords converts records to rows. lines holds the file line each
// record starts on; when nil, record i is taken to be on line i+1.
func parseRecords(name string, records [][]string, lines []int, hasHeader bool) ([]ProductData, error) {
	lineOf := func(i int) int {
		if lines != nil {
			return lines[i]
		}
		return i + 1
	}

	start := 0
	index := make(map[string]int, len(DefaultColumnOrder))
	if hasHeader {
		if len(records) == 0 {
			return nil, errors.Wrapf(errors.ErrEmptyData, "dataset %s", name)
		}
		byLower := make(map[string]int, len(records[0]))
		for i, h := range records[0] {
			byLower[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
		}
		for _, col := range DefaultColumnOrder {
			i, ok := byLower[strings.ToLower(col)]
			if !ok {
				return nil, errors.NewDataFormatError(name, lineOf(0), col, "missing column in header")
			}
			index[col] = i
		}
		start = 1
	} else {
		for i, col := range DefaultColumnOrder {
			index[col] = i
		}
	}

	rows := make([]ProductData, 0, len(records)-start)
	for li := start; li < len(records); li++ {
		rec := records[li]
		line := lineOf(li)
		if isBlank(rec) {
			continue
		}
		var p ProductData
		for col, i := range index {
			if i >= len(rec) {
				return nil, errors.NewDataFormatError(name, line, col, "missing value")
			}
			raw := strings.TrimSpace(rec[i])
			if col == ColProductID {
				if raw == "" {
					return nil, errors.NewDataFormatError(name, line, col, "empty product id")
				}
				p.ProductID = raw
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, errors.NewDataFormatError(name, line, col, fmt.Sprintf("invalid number %q", raw))
			}
			p.setNumeric(col, v)
		}
		rows = append(rows, p)
	}
	if len(rows) == 0 {
		return nil, errors.Wrapf(errors.ErrEmptyData, "dataset %s", name)
	}
	return rows, nil
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
