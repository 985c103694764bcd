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

package dataframe_test

import (
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/pv-risk/dataframe"
)

func day(d int) time.Time {
	return time.Date(2023, 1, d, 0, 0, 0, 0, time.UTC)
}

var _ = Describe("DataFrame", func() {
	Context("with no values", func() {
		var (
			df *dataframe.DataFrame
		)

		BeforeEach(func() {
			df = dataframe.New("A", "B")
		})

		It("has zero length", func() {
			Expect(df.Len()).To(Equal(0))
		})

		It("has two columns", func() {
			Expect(df.ColCount()).To(Equal(2))
		})

		It("has zero start and end dates", func() {
			Expect(df.Start().IsZero()).To(BeTrue())
			Expect(df.End().IsZero()).To(BeTrue())
		})

		It("does not error on pct change", func() {
			Expect(df.PctChange().Len()).To(Equal(0))
		})

		It("has an empty complete run", func() {
			begin, end := df.LongestCompleteRun()
			Expect(end - begin).To(Equal(0))
		})
	})

	Context("when inserting rows", func() {
		var (
			df *dataframe.DataFrame
		)

		BeforeEach(func() {
			df = dataframe.New("A", "B")
			Expect(df.InsertMap(day(2), map[string]float64{"A": 1, "B": 2})).To(Succeed())
		})

		It("fills missing columns with NaN", func() {
			Expect(df.InsertMap(day(3), map[string]float64{"A": 3})).To(Succeed())
			Expect(df.Len()).To(Equal(2))
			Expect(math.IsNaN(df.Vals[1][1])).To(BeTrue())
			Expect(df.Observations()).To(Equal(map[string]int{"A": 2, "B": 1}))
		})

		It("ignores unknown columns", func() {
			Expect(df.InsertMap(day(3), map[string]float64{"A": 3, "Z": 9})).To(Succeed())
			Expect(df.ColCount()).To(Equal(2))
		})

		It("merges a row with the same date", func() {
			Expect(df.InsertMap(day(2), map[string]float64{"B": 7})).To(Succeed())
			Expect(df.Len()).To(Equal(1))
			Expect(df.Vals[0][0]).To(Equal(1.0))
			Expect(df.Vals[1][0]).To(Equal(7.0))
		})

		It("refuses rows out of order", func() {
			Expect(df.InsertMap(day(1), map[string]float64{"A": 3})).To(MatchError(dataframe.ErrDateNotAscending))
		})
	})

	Context("with gaps in the data", func() {
		var (
			df  *dataframe.DataFrame
			nan = math.NaN()
		)

		BeforeEach(func() {
			df = &dataframe.DataFrame{
				ColNames: []string{"A", "B"},
				Dates:    []time.Time{day(1), day(2), day(3), day(4), day(5), day(6), day(7)},
				Vals: [][]float64{
					{1, 2, 3, 4, 5, 6, 7},
					{nan, 1, 1, nan, 2, 2, 2},
				},
			}
		})

		It("finds the longest complete run", func() {
			begin, end := df.LongestCompleteRun()
			Expect(begin).To(Equal(4))
			Expect(end).To(Equal(7))
		})

		It("prefers the most recent run when lengths tie", func() {
			df.Vals[1][6] = nan
			begin, end := df.LongestCompleteRun()
			Expect(begin).To(Equal(4))
			Expect(end).To(Equal(6))
		})

		It("slices rows", func() {
			sub := df.Slice(4, 7)
			Expect(sub.Len()).To(Equal(3))
			Expect(sub.Start()).To(Equal(day(5)))
			Expect(sub.End()).To(Equal(day(7)))
			Expect(sub.Vals[0]).To(Equal([]float64{5, 6, 7}))
		})

		It("clamps out of range slices", func() {
			Expect(df.Slice(-3, 100).Len()).To(Equal(7))
			Expect(df.Slice(5, 2).Len()).To(Equal(0))
		})
	})

	Context("when computing returns", func() {
		var (
			df *dataframe.DataFrame
		)

		BeforeEach(func() {
			df = &dataframe.DataFrame{
				ColNames: []string{"A", "B"},
				Dates:    []time.Time{day(1), day(2), day(3)},
				Vals: [][]float64{
					{100, 110, 99},
					{50, 50, 55},
				},
			}
		})

		It("computes simple returns", func() {
			rets := df.PctChange()
			Expect(rets.Len()).To(Equal(2))
			Expect(rets.Dates).To(Equal([]time.Time{day(2), day(3)}))
			Expect(rets.Vals[0][0]).To(BeNumerically("~", 0.10, 1e-12))
			Expect(rets.Vals[0][1]).To(BeNumerically("~", -0.10, 1e-12))
			Expect(rets.Vals[1][0]).To(BeNumerically("==", 0))
			Expect(rets.Vals[1][1]).To(BeNumerically("~", 0.10, 1e-12))
		})

		It("does not modify the source", func() {
			df.PctChange()
			Expect(df.Vals[0]).To(Equal([]float64{100, 110, 99}))
		})

		It("converts to an observation by column matrix", func() {
			m := df.Matrix()
			r, c := m.Dims()
			Expect(r).To(Equal(3))
			Expect(c).To(Equal(2))
			Expect(m.At(1, 0)).To(Equal(110.0))
			Expect(m.At(2, 1)).To(Equal(55.0))
		})

		It("converts an empty frame to an empty matrix", func() {
			m := dataframe.New("A").Matrix()
			Expect(m.IsEmpty()).To(BeTrue())
		})
	})
})
