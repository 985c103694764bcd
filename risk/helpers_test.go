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

package risk_test

import (
	"math/rand"
	"time"

	"github.com/penny-vault/pv-risk/risk"
)

var baseDate = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// pricesFromReturns compounds returns (one row per period, one column per asset)
// into a price history starting at 100
func pricesFromReturns(names []string, returns [][]float64) []risk.PriceRow {
	rows := make([]risk.PriceRow, 0, len(returns)+1)
	curr := make([]float64, len(names))
	first := make(map[string]float64, len(names))
	for idx, name := range names {
		curr[idx] = 100
		first[name] = 100
	}
	rows = append(rows, risk.PriceRow{Date: baseDate, Prices: first})

	for rowIdx, ret := range returns {
		prices := make(map[string]float64, len(names))
		for idx, name := range names {
			curr[idx] *= 1 + ret[idx]
			prices[name] = curr[idx]
		}
		rows = append(rows, risk.PriceRow{Date: baseDate.AddDate(0, 0, rowIdx+1), Prices: prices})
	}

	return rows
}

// alternating returns +a, -a, +a, ... with period block; block=1 gives +,-,+,-
// and block=2 gives +,+,-,-
func alternating(n int, a float64, block int) []float64 {
	res := make([]float64, n)
	for idx := range res {
		if (idx/block)%2 == 0 {
			res[idx] = a
		} else {
			res[idx] = -a
		}
	}
	return res
}

func columns(cols ...[]float64) [][]float64 {
	rows := make([][]float64, len(cols[0]))
	for rowIdx := range rows {
		rows[rowIdx] = make([]float64, len(cols))
		for colIdx, col := range cols {
			rows[rowIdx][colIdx] = col[rowIdx]
		}
	}
	return rows
}

// randomReturns generates correlated returns driven by a common market factor
func randomReturns(seed int64, nObs int, nAssets int) [][]float64 {
	rnd := rand.New(rand.NewSource(seed))
	rows := make([][]float64, nObs)
	for rowIdx := range rows {
		market := rnd.NormFloat64() * 0.01
		rows[rowIdx] = make([]float64, nAssets)
		for colIdx := range rows[rowIdx] {
			beta := 0.5 + float64(colIdx)*0.25
			rows[rowIdx][colIdx] = beta*market + rnd.NormFloat64()*0.005*float64(colIdx+1)
		}
	}
	return rows
}

func holding(name string, assetType risk.AssetType, quantity, price float64) risk.Holding {
	return risk.Holding{
		AssetName:    name,
		AssetType:    assetType,
		Quantity:     quantity,
		CurrentPrice: price,
	}
}

func dailyConfig() risk.Config {
	cfg := risk.DefaultConfig()
	cfg.MinDataPointsDaily = 30
	return cfg
}
