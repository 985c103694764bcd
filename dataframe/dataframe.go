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

	"github.com/rs/zerolog/log"
)

// New creates an empty dataframe with the given columns
func New(colNames ...string) *DataFrame {
	df := &DataFrame{
		Dates:    make([]time.Time, 0),
		ColNames: make([]string, len(colNames)),
		Vals:     make([][]float64, len(colNames)),
	}
	copy(df.ColNames, colNames)
	for idx := range df.Vals {
		df.Vals[idx] = make([]float64, 0)
	}
	return df
}

// ColCount returns the number of columns in the dataframe
func (df *DataFrame) ColCount() int {
	return len(df.ColNames)
}

// End returns the last date of the dataframe
func (df *DataFrame) End() time.Time {
	if len(df.Dates) == 0 {
		return time.Time{}
	}
	return df.Dates[len(df.Dates)-1]
}

// InsertMap adds a row to the dataframe. Columns not present in vals are
// filled with NaN and keys that do not name a column are ignored. If date equals
// the last date in the dataframe the values in vals overwrite that row.
func (df *DataFrame) InsertMap(date time.Time, vals map[string]float64) error {
	if len(df.Dates) > 0 {
		last := df.End()
		if date.Before(last) {
			log.Debug().Time("Date", date).Time("Last", last).Msg("refusing to insert row out of order")
			return ErrDateNotAscending
		}

		if date.Equal(last) {
			rowIdx := len(df.Dates) - 1
			for colIdx, colName := range df.ColNames {
				if val, ok := vals[colName]; ok {
					df.Vals[colIdx][rowIdx] = val
				}
			}
			return nil
		}
	}

	df.Dates = append(df.Dates, date)
	for colIdx, colName := range df.ColNames {
		val, ok := vals[colName]
		if !ok {
			val = math.NaN()
		}
		df.Vals[colIdx] = append(df.Vals[colIdx], val)
	}

	return nil
}

// Len returns the number of rows in the dataframe
func (df *DataFrame) Len() int {
	return len(df.Dates)
}

// Slice returns a dataframe containing rows [begin, end). The underlying
// arrays are shared with df.
func (df *DataFrame) Slice(begin, end int) *DataFrame {
	if begin < 0 {
		begin = 0
	}
	if end > df.Len() {
		end = df.Len()
	}
	if end < begin {
		end = begin
	}

	df2 := &DataFrame{
		ColNames: df.ColNames,
		Dates:    df.Dates[begin:end],
		Vals:     make([][]float64, len(df.Vals)),
	}
	for idx, col := range df.Vals {
		df2.Vals[idx] = col[begin:end]
	}
	return df2
}

// Start returns the first date of the dataframe
func (df *DataFrame) Start() time.Time {
	if len(df.Dates) == 0 {
		return time.Time{}
	}
	return df.Dates[0]
}
