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
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/stat"

	"github.com/penny-vault/pv-risk/risk"
)

var _ = Describe("Covariance", func() {
	Context("with two uncorrelated assets of known variance", func() {
		var (
			res *risk.CovarianceResult
		)

		BeforeEach(func() {
			rm := &risk.ReturnsMatrix{
				AssetNames: []string{"A", "B"},
				Returns:    columns(alternating(1000, 0.02, 1), alternating(1000, 0.02, 2)),
			}

			var err error
			res, err = risk.ComputeCovariance(rm, risk.Daily)
			Expect(err).To(BeNil())
		})

		It("computes the sample variance with an n-1 denominator", func() {
			expected := 0.0004 * 1000.0 / 999.0
			Expect(res.Covariance.At(0, 0)).To(BeNumerically("~", expected, 1e-15))
			Expect(res.Covariance.At(1, 1)).To(BeNumerically("~", expected, 1e-15))
		})

		It("has zero covariance", func() {
			Expect(res.Covariance.At(0, 1)).To(BeNumerically("~", 0, 1e-15))
			Expect(res.Correlation.At(0, 1)).To(BeNumerically("~", 0, 1e-12))
		})

		It("has zero mean", func() {
			Expect(res.Means[0]).To(BeNumerically("~", 0, 1e-15))
			Expect(res.Means[1]).To(BeNumerically("~", 0, 1e-15))
		})

		It("annualizes volatility with 252 trading days", func() {
			Expect(res.Volatilities[0]).To(BeNumerically("~", math.Sqrt(0.0004*1000.0/999.0)*math.Sqrt(252), 1e-12))
			Expect(res.Volatilities[0]).To(BeNumerically("~", 0.3175, 0.001))
		})

		It("annualizes the covariance matrix", func() {
			annualized := res.Annualized()
			Expect(annualized.At(0, 0)).To(BeNumerically("~", res.Covariance.At(0, 0)*252, 1e-15))
			Expect(res.Covariance.At(0, 0)).To(BeNumerically("<", annualized.At(0, 0)))
		})
	})

	Context("with correlated random returns", func() {
		var (
			rm  *risk.ReturnsMatrix
			res *risk.CovarianceResult
		)

		BeforeEach(func() {
			rm = &risk.ReturnsMatrix{
				AssetNames: []string{"A", "B", "C", "D", "E"},
				Returns:    randomReturns(42, 500, 5),
			}

			var err error
			res, err = risk.ComputeCovariance(rm, risk.Weekly)
			Expect(err).To(BeNil())
		})

		It("is symmetric", func() {
			for ii := 0; ii < 5; ii++ {
				for jj := 0; jj < 5; jj++ {
					Expect(res.Covariance.At(ii, jj)).To(Equal(res.Covariance.At(jj, ii)))
					Expect(res.Correlation.At(ii, jj)).To(Equal(res.Correlation.At(jj, ii)))
				}
			}
		})

		It("has correlations in [-1, 1] and a unit diagonal", func() {
			for ii := 0; ii < 5; ii++ {
				Expect(res.Correlation.At(ii, ii)).To(Equal(1.0))
				for jj := 0; jj < 5; jj++ {
					Expect(res.Correlation.At(ii, jj)).To(BeNumerically(">=", -1.0))
					Expect(res.Correlation.At(ii, jj)).To(BeNumerically("<=", 1.0))
				}
			}
		})

		It("matches the pairwise gonum statistics", func() {
			colA := make([]float64, rm.Observations())
			colC := make([]float64, rm.Observations())
			for idx, row := range rm.Returns {
				colA[idx] = row[0]
				colC[idx] = row[2]
			}
			Expect(res.Covariance.At(0, 2)).To(BeNumerically("~", stat.Covariance(colA, colC, nil), 1e-15))
			Expect(res.Correlation.At(0, 2)).To(BeNumerically("~", stat.Correlation(colA, colC, nil), 1e-12))
			Expect(res.Correlation.At(0, 2)).To(BeNumerically(">", 0))
		})

		It("annualizes weekly volatility with 52 periods", func() {
			Expect(res.PeriodsPerYear).To(Equal(52.0))
			Expect(res.Volatilities[3]).To(BeNumerically("~", res.StdDevs[3]*math.Sqrt(52), 1e-15))
		})
	})

	Context("with perfectly correlated assets", func() {
		It("clamps correlations to exactly +1 and -1", func() {
			a := alternating(100, 0.01, 1)
			b := make([]float64, len(a))
			c := make([]float64, len(a))
			for idx := range a {
				b[idx] = a[idx] * 3
				c[idx] = -a[idx] * 2
			}
			rm := &risk.ReturnsMatrix{AssetNames: []string{"A", "B", "C"}, Returns: columns(a, b, c)}

			res, err := risk.ComputeCovariance(rm, risk.Monthly)
			Expect(err).To(BeNil())
			Expect(res.Correlation.At(0, 1)).To(BeNumerically("~", 1.0, 1e-12))
			Expect(res.Correlation.At(0, 2)).To(BeNumerically("~", -1.0, 1e-12))
			Expect(res.Correlation.At(0, 1)).To(BeNumerically("<=", 1.0))
			Expect(res.Correlation.At(0, 2)).To(BeNumerically(">=", -1.0))
		})
	})

	Context("with bad input", func() {
		It("reports the asset with a flat price series", func() {
			rm := &risk.ReturnsMatrix{
				AssetNames: []string{"A", "FLAT"},
				Returns:    columns(alternating(50, 0.01, 1), make([]float64, 50)),
			}

			_, err := risk.ComputeCovariance(rm, risk.Daily)
			Expect(err).To(MatchError(risk.ErrDegenerateAsset))

			var degenerate *risk.DegenerateAssetError
			Expect(errors.As(err, &degenerate)).To(BeTrue())
			Expect(degenerate.Asset).To(Equal("FLAT"))
		})

		It("refuses to compute a covariance from a single observation", func() {
			rm := &risk.ReturnsMatrix{
				AssetNames: []string{"A"},
				Returns:    [][]float64{{0.01}},
			}

			_, err := risk.ComputeCovariance(rm, risk.Daily)
			Expect(err).To(MatchError(risk.ErrNumerical))
		})

		It("reports non-finite returns", func() {
			returns := alternating(20, 0.01, 1)
			returns[5] = math.Inf(1)
			rm := &risk.ReturnsMatrix{
				AssetNames: []string{"A"},
				Returns:    columns(returns),
			}

			_, err := risk.ComputeCovariance(rm, risk.Daily)
			Expect(err).To(MatchError(risk.ErrNumerical))
		})

		It("reports ragged return rows", func() {
			rm := &risk.ReturnsMatrix{
				AssetNames: []string{"A", "B"},
				Returns:    [][]float64{{0.01, 0.02}, {0.03}, {0.01, -0.01}},
			}

			_, err := risk.ComputeCovariance(rm, risk.Daily)
			Expect(err).To(MatchError(risk.ErrNumerical))
			Expect(err.Error()).To(ContainSubstring("return row 1 has 1 values, expected 2"))
		})

		It("rejects an unknown frequency", func() {
			rm := &risk.ReturnsMatrix{
				AssetNames: []string{"A"},
				Returns:    columns(alternating(20, 0.01, 1)),
			}

			_, err := risk.ComputeCovariance(rm, risk.Frequency("Hourly"))
			Expect(err).To(MatchError(risk.ErrValidation))
		})
	})
})
