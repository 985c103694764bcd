// Copyright 2021-2023
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package upload reads VaR uploads from Excel workbooks and JSON documents
package upload

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/goccy/go-json"
	"github.com/penny-vault/pv-risk/risk"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx/v3"
)

const (
	HoldingsSheet      = "Portfolio_Holdings"
	PriceHistorySheet  = "Price_History"
	ConfigurationSheet = "Configuration"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported upload format")
)

// ParseFile reads an upload from path choosing the parser by file extension
func ParseFile(path string) (*risk.UploadData, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ParseXLSX(path)
	case ".json":
		fh, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer fh.Close()
		return ParseJSON(fh)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// ParseJSON decodes an UploadData document. Configuration values that are not
// present in the document take their default values.
func ParseJSON(r io.Reader) (*risk.UploadData, error) {
	data := &risk.UploadData{
		Config: risk.DefaultConfig(),
	}

	dec := json.NewDecoder(r)
	if err := dec.Decode(data); err != nil {
		return nil, &risk.ValidationError{Messages: []string{fmt.Sprintf("could not decode upload: %s", err)}}
	}

	data.Config.ConfidenceLevel = risk.NormalizeConfidence(data.Config.ConfidenceLevel)
	data.Config.Currency = risk.NormalizeCurrency(data.Config.Currency)

	return data, nil
}

// ParseXLSX reads the workbook at path
func ParseXLSX(path string) (*risk.UploadData, error) {
	wb, err := xlsx.OpenFile(path)
	if err != nil {
		log.Warn().Err(err).Str("Path", path).Msg("could not open workbook")
		return nil, &risk.ValidationError{Messages: []string{fmt.Sprintf("could not read workbook %s: %s", filepath.Base(path), err)}}
	}
	return parseWorkbook(wb)
}

// ParseXLSXBytes reads a workbook held in memory
func ParseXLSXBytes(b []byte) (*risk.UploadData, error) {
	wb, err := xlsx.OpenBinary(b)
	if err != nil {
		log.Warn().Err(err).Int("Size", len(b)).Msg("could not open workbook")
		return nil, &risk.ValidationError{Messages: []string{fmt.Sprintf("could not read workbook: %s", err)}}
	}
	return parseWorkbook(wb)
}

func parseWorkbook(wb *xlsx.File) (*risk.UploadData, error) {
	p := &parser{
		date1904: wb.Date1904,
	}

	holdingsSheet := findSheet(wb, HoldingsSheet)
	priceSheet := findSheet(wb, PriceHistorySheet)
	configSheet := findSheet(wb, ConfigurationSheet)

	if msgs := missingSheets(holdingsSheet, priceSheet, configSheet); len(msgs) > 0 {
		return nil, &risk.ValidationError{Messages: msgs}
	}

	data := &risk.UploadData{
		Holdings:     p.holdings(holdingsSheet),
		PriceHistory: p.priceHistory(priceSheet),
		Config:       p.config(configSheet),
	}

	if len(p.msgs) > 0 {
		return nil, &risk.ValidationError{Messages: p.msgs}
	}

	log.Debug().Int("NumHoldings", len(data.Holdings)).Int("NumPriceRows", len(data.PriceHistory)).Msg("parsed workbook")
	return data, nil
}

func missingSheets(sheets ...*xlsx.Sheet) []string {
	names := []string{HoldingsSheet, PriceHistorySheet, ConfigurationSheet}
	msgs := make([]string, 0, len(names))
	for idx, sheet := range sheets {
		if sheet == nil {
			msgs = append(msgs, fmt.Sprintf("workbook is missing the %s sheet", names[idx]))
		}
	}
	return msgs
}

// findSheet looks up a sheet by exact name and then by normalized name
func findSheet(wb *xlsx.File, name string) *xlsx.Sheet {
	if sheet, ok := wb.Sheet[name]; ok {
		return sheet
	}
	want := normalize(name)
	for _, sheet := range wb.Sheets {
		if normalize(sheet.Name) == want {
			return sheet
		}
	}
	return nil
}

// normalize lower cases s and drops everything that is not a letter or digit so
// that "Asset Name", "asset_name" and "AssetName" compare equal
func normalize(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(unicode.ToLower(r))
		}
	}
	return sb.String()
}

type parser struct {
	date1904 bool
	msgs     []string
}

func (p *parser) problem(format string, args ...interface{}) {
	p.msgs = append(p.msgs, fmt.Sprintf(format, args...))
}

// rows returns the 1-based row number and cells of every row in sheet that has
// at least one non-blank cell
func rows(sheet *xlsx.Sheet) ([]int, [][]*xlsx.Cell) {
	rowNums := make([]int, 0, sheet.MaxRow)
	cells := make([][]*xlsx.Cell, 0, sheet.MaxRow)

	err := sheet.ForEachRow(func(r *xlsx.Row) error {
		rowCells := make([]*xlsx.Cell, sheet.MaxCol)
		empty := true
		for colIdx := 0; colIdx < sheet.MaxCol; colIdx++ {
			cell := r.GetCell(colIdx)
			rowCells[colIdx] = cell
			if strings.TrimSpace(cell.Value) != "" {
				empty = false
			}
		}
		if !empty {
			rowNums = append(rowNums, r.GetCoordinate()+1)
			cells = append(cells, rowCells)
		}
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("Sheet", sheet.Name).Msg("error iterating over sheet rows")
	}

	return rowNums, cells
}

func cellText(cell *xlsx.Cell) string {
	if cell == nil {
		return ""
	}
	return strings.TrimSpace(cell.Value)
}

// cellFloat parses a numeric cell; the second return value is false when the
// cell is blank. NaN and infinities are rejected.
func cellFloat(cell *xlsx.Cell) (float64, bool, error) {
	text := cellText(cell)
	if text == "" {
		return 0, false, nil
	}

	val, err := cell.Float()
	if err != nil {
		text = strings.ReplaceAll(text, ",", "")
		text = strings.TrimSuffix(text, "%")
		val, err = strconv.ParseFloat(strings.TrimSpace(text), 64)
	}
	if err != nil || math.IsNaN(val) || math.IsInf(val, 0) {
		return 0, true, fmt.Errorf("%q is not a number", cellText(cell))
	}
	return val, true, nil
}

func (p *parser) cellDate(cell *xlsx.Cell) (time.Time, error) {
	if cell.IsTime() {
		dt, err := cell.GetTime(p.date1904)
		if err == nil {
			return dateOnly(dt), nil
		}
	}

	text := cellText(cell)
	if dt, err := risk.ParseDate(text); err == nil {
		return dt, nil
	}

	serial, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is not a date", text)
	}
	return dateOnly(xlsx.TimeFromExcelTime(serial, p.date1904)), nil
}

func dateOnly(dt time.Time) time.Time {
	dt = dt.Round(time.Second)
	return time.Date(dt.Year(), dt.Month(), dt.Day(), 0, 0, 0, 0, time.UTC)
}

// headerIndex maps normalized header names to their column
func headerIndex(header []*xlsx.Cell) map[string]int {
	idx := make(map[string]int, len(header))
	for colIdx, cell := range header {
		name := normalize(cellText(cell))
		if name == "" {
			continue
		}
		if _, ok := idx[name]; !ok {
			idx[name] = colIdx
		}
	}
	return idx
}

func colCell(row []*xlsx.Cell, cols map[string]int, name string) *xlsx.Cell {
	colIdx, ok := cols[name]
	if !ok || colIdx >= len(row) {
		return nil
	}
	return row[colIdx]
}

func (p *parser) holdings(sheet *xlsx.Sheet) []risk.Holding {
	rowNums, cells := rows(sheet)
	if len(cells) == 0 {
		p.problem("%s sheet is empty", HoldingsSheet)
		return nil
	}

	cols := headerIndex(cells[0])
	for _, required := range []string{"Asset Name", "Asset Type", "Quantity", "Current Price"} {
		if _, ok := cols[normalize(required)]; !ok {
			p.problem("%s sheet is missing the %s column", HoldingsSheet, required)
		}
	}
	if len(p.msgs) > 0 {
		return nil
	}

	holdings := make([]risk.Holding, 0, len(cells)-1)
	for idx, row := range cells[1:] {
		rowNum := rowNums[idx+1]
		h := risk.Holding{
			AssetName: cellText(colCell(row, cols, "assetname")),
			Notes:     cellText(colCell(row, cols, "notes")),
		}

		typeText := cellText(colCell(row, cols, "assettype"))
		assetType, err := risk.ParseAssetType(typeText)
		if err != nil {
			p.problem("%s row %d: %s", HoldingsSheet, rowNum, err)
		}
		h.AssetType = assetType

		if qty, ok, err := cellFloat(colCell(row, cols, "quantity")); err != nil {
			p.problem("%s row %d: quantity %s", HoldingsSheet, rowNum, err)
		} else if ok {
			h.Quantity = qty
		}

		if price, ok, err := cellFloat(colCell(row, cols, "currentprice")); err != nil {
			p.problem("%s row %d: current price %s", HoldingsSheet, rowNum, err)
		} else if ok {
			h.CurrentPrice = price
		}

		holdings = append(holdings, h)
	}

	return holdings
}

func (p *parser) priceHistory(sheet *xlsx.Sheet) []risk.PriceRow {
	rowNums, cells := rows(sheet)
	if len(cells) == 0 {
		p.problem("%s sheet is empty", PriceHistorySheet)
		return nil
	}

	header := cells[0]
	if normalize(cellText(header[0])) != "date" {
		p.problem("%s sheet must start with a Date column", PriceHistorySheet)
		return nil
	}

	assets := make([]string, len(header))
	for colIdx := 1; colIdx < len(header); colIdx++ {
		assets[colIdx] = cellText(header[colIdx])
	}

	history := make([]risk.PriceRow, 0, len(cells)-1)
	for idx, row := range cells[1:] {
		rowNum := rowNums[idx+1]
		date, err := p.cellDate(row[0])
		if err != nil {
			p.problem("%s row %d: %s", PriceHistorySheet, rowNum, err)
			continue
		}

		prices := make(map[string]float64, len(assets))
		for colIdx := 1; colIdx < len(row); colIdx++ {
			if assets[colIdx] == "" {
				continue
			}
			price, ok, err := cellFloat(row[colIdx])
			if err != nil {
				p.problem("%s row %d: %s price %s", PriceHistorySheet, rowNum, assets[colIdx], err)
				continue
			}
			if ok {
				prices[assets[colIdx]] = price
			}
		}

		history = append(history, risk.PriceRow{Date: date, Prices: prices})
	}

	return history
}

func (p *parser) config(sheet *xlsx.Sheet) risk.Config {
	cfg := risk.DefaultConfig()
	rowNums, cells := rows(sheet)

	for idx, row := range cells {
		if len(row) < 2 {
			continue
		}
		param := normalize(cellText(row[0]))
		if param == "parameter" {
			continue
		}

		valueCell := row[1]
		switch param {
		case "datafrequency", "frequency":
			freq, err := risk.ParseFrequency(cellText(valueCell))
			if err != nil {
				p.problem("%s row %d: %s", ConfigurationSheet, rowNums[idx], err)
				continue
			}
			cfg.DataFrequency = freq
		case "confidencelevel", "confidence":
			if val, ok, err := cellFloat(valueCell); err != nil {
				p.problem("%s row %d: confidence level %s", ConfigurationSheet, rowNums[idx], err)
			} else if ok {
				cfg.ConfidenceLevel = risk.NormalizeConfidence(val)
			}
		case "timehorizondays", "timehorizon", "horizondays":
			p.intParam(valueCell, rowNums[idx], "time horizon", &cfg.TimeHorizonDays)
		case "currency":
			if text := cellText(valueCell); text != "" {
				cfg.Currency = risk.NormalizeCurrency(text)
			}
		case "mindatapointsdaily":
			p.intParam(valueCell, rowNums[idx], "min data points daily", &cfg.MinDataPointsDaily)
		case "mindatapointsmonthly":
			p.intParam(valueCell, rowNums[idx], "min data points monthly", &cfg.MinDataPointsMonthly)
		default:
			log.Debug().Str("Parameter", cellText(row[0])).Msg("ignoring unknown configuration parameter")
		}
	}

	return cfg
}

func (p *parser) intParam(cell *xlsx.Cell, rowNum int, label string, dest *int) {
	val, ok, err := cellFloat(cell)
	if err != nil {
		p.problem("%s row %d: %s %s", ConfigurationSheet, rowNum, label, err)
		return
	}
	if !ok {
		return
	}
	if val != float64(int(val)) {
		p.problem("%s row %d: %s must be a whole number, got %g", ConfigurationSheet, rowNum, label, val)
		return
	}
	*dest = int(val)
}
