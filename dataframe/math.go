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

package dataframe

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Observations returns the number of non-NaN values in each column
func (df *DataFrame) Observations() map[string]int {
	res := make(map[string]int, len(df.ColNames))
	for colIdx, colName := range df.ColNames {
		cnt := 0
		for _, val := range df.Vals[colIdx] {
			if !math.IsNaN(val) {
				cnt++
			}
		}
		res[colName] = cnt
	}
	return res
}

// rowComplete returns true if no column in row rowIdx is NaN
func (df *DataFrame) rowComplete(rowIdx int) bool {
	for _, col := range df.Vals {
		if math.IsNaN(col[rowIdx]) {
			return false
		}
	}
	return true
}

// LongestCompleteRun finds the longest run of consecutive rows in which every
// column has a value. The run is returned as the half-open row range [begin, end).
// Ties are broken in favor of the most recent run. If no row is complete then
// begin == end.
func (df *DataFrame) LongestCompleteRun() (begin, end int) {
	runStart := 0
	for rowIdx := 0; rowIdx <= df.Len(); rowIdx++ {
		if rowIdx < df.Len() && df.rowComplete(rowIdx) {
			continue
		}

		if (rowIdx-runStart) > 0 && (rowIdx-runStart) >= (end-begin) {
			begin, end = runStart, rowIdx
		}
		runStart = rowIdx + 1
	}

	return begin, end
}

// PctChange computes the simple return (x[t] - x[t-1]) / x[t-1] of every column
// and returns a new dataframe. The first row has no predecessor and is dropped so
// the result has one less row than df.
func (df *DataFrame) PctChange() *DataFrame {
	if df.Len() < 2 {
		return New(df.ColNames...)
	}

	res := &DataFrame{
		ColNames: make([]string, len(df.ColNames)),
		Dates:    make([]time.Time, df.Len()-1),
		Vals:     make([][]float64, len(df.Vals)),
	}
	copy(res.ColNames, df.ColNames)
	copy(res.Dates, df.Dates[1:])

	for colIdx, col := range df.Vals {
		curr := make([]float64, len(col)-1)
		copy(curr, col[1:])
		floats.Sub(curr, col[:len(col)-1])
		floats.Div(curr, col[:len(col)-1])
		res.Vals[colIdx] = curr
	}

	return res
}

// Matrix converts the dataframe into an observation by column matrix suitable for
// use with gonum/stat
func (df *DataFrame) Matrix() *mat.Dense {
	if df.Len() == 0 || df.ColCount() == 0 {
		return &mat.Dense{}
	}

	m := mat.NewDense(df.Len(), df.ColCount(), nil)
	for colIdx, col := range df.Vals {
		m.SetCol(colIdx, col)
	}
	return m
}
