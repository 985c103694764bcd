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

package risk

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"

	"github.com/penny-vault/pv-risk/dataframe"
)

// BuildReturns aligns the price history of assetNames by date and converts it to
// simple periodic returns. Only the longest contiguous run of dates on which
// every asset has a price is used. priceHistory is not modified.
func BuildReturns(priceHistory []PriceRow, assetNames []string, cfg Config) (*ReturnsMatrix, error) {
	if len(assetNames) == 0 {
		return nil, &ValidationError{Messages: []string{"no assets requested"}}
	}

	rows := make([]PriceRow, len(priceHistory))
	copy(rows, priceHistory)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Date.Before(rows[j].Date)
	})

	prices := dataframe.New(assetNames...)
	for _, row := range rows {
		vals := make(map[string]float64, len(assetNames))
		for _, name := range assetNames {
			price, ok := row.Prices[name]
			if !ok {
				continue
			}
			if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
				return nil, &InvalidPriceError{
					Asset: name,
					Date:  row.Date,
					Price: price,
				}
			}
			vals[name] = price
		}

		if err := prices.InsertMap(row.Date, vals); err != nil {
			return nil, err
		}
	}

	obs := prices.Observations()
	missing := make([]string, 0)
	gaps := make([]string, 0)
	for _, name := range assetNames {
		switch {
		case obs[name] == 0:
			missing = append(missing, name)
		case obs[name] < prices.Len():
			gaps = append(gaps, name)
		}
	}

	if len(missing) > 0 {
		return nil, &MissingAssetDataError{Assets: missing}
	}

	begin, end := prices.LongestCompleteRun()
	aligned := prices.Slice(begin, end)
	returns := aligned.PctChange()

	log.Debug().Int("NumDates", prices.Len()).Int("AlignedDates", aligned.Len()).Time("Start", aligned.Start()).
		Time("End", aligned.End()).Strs("GapAssets", gaps).Msg("aligned price history")

	need := cfg.MinDataPoints()
	if returns.Len() < need {
		return nil, &InsufficientDataError{
			Have:      returns.Len(),
			Need:      need,
			Frequency: cfg.DataFrequency,
			Start:     aligned.Start(),
			End:       aligned.End(),
			Assets:    gaps,
		}
	}

	data := returns.Matrix()
	rm := &ReturnsMatrix{
		AssetNames: make([]string, len(assetNames)),
		Start:      aligned.Start(),
		Dates:      make([]time.Time, returns.Len()),
		Returns:    make([][]float64, returns.Len()),
		data:       data,
	}
	copy(rm.AssetNames, assetNames)
	copy(rm.Dates, returns.Dates)
	for rowIdx := range rm.Returns {
		rm.Returns[rowIdx] = mat.Row(nil, rowIdx, data)
	}

	return rm, nil
}
