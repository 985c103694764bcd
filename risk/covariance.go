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
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// variances at or below minVariance are treated as a flat price series
const minVariance = 1e-24

// CovarianceResult holds the second-moment structure of a returns matrix. Every
// vector and matrix is in AssetNames order.
type CovarianceResult struct {
	AssetNames []string
	// Covariance is the periodic (un-annualized) sample covariance matrix
	Covariance  *mat.SymDense
	Correlation *mat.SymDense
	Means       []float64
	// StdDevs are periodic standard deviations
	StdDevs []float64
	// Volatilities are annualized standard deviations
	Volatilities   []float64
	PeriodsPerYear float64
}

// Annualized returns the covariance matrix scaled to a yearly horizon
func (cr *CovarianceResult) Annualized() *mat.SymDense {
	var annualized mat.SymDense
	annualized.ScaleSym(cr.PeriodsPerYear, cr.Covariance)
	return &annualized
}

// ComputeCovariance calculates the sample mean, covariance and correlation of
// each asset in returns. Sample statistics use an n-1 denominator.
func ComputeCovariance(returns *ReturnsMatrix, frequency Frequency) (*CovarianceResult, error) {
	periodsPerYear := frequency.PeriodsPerYear()
	if periodsPerYear == 0 {
		return nil, &ValidationError{Messages: []string{fmt.Sprintf("unknown data frequency %q", frequency)}}
	}

	nObs := returns.Observations()
	nAssets := len(returns.AssetNames)
	if nObs < 2 {
		return nil, &NumericalError{
			Stage:  "covariance",
			Detail: fmt.Sprintf("at least 2 return observations are required for a sample covariance, got %d", nObs),
		}
	}

	x, err := returns.Matrix()
	if err != nil {
		return nil, err
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, x, nil)

	res := &CovarianceResult{
		AssetNames:     make([]string, nAssets),
		Covariance:     &cov,
		Correlation:    mat.NewSymDense(nAssets, nil),
		Means:          make([]float64, nAssets),
		StdDevs:        make([]float64, nAssets),
		Volatilities:   make([]float64, nAssets),
		PeriodsPerYear: periodsPerYear,
	}
	copy(res.AssetNames, returns.AssetNames)

	for ii := 0; ii < nAssets; ii++ {
		for jj := ii; jj < nAssets; jj++ {
			val := cov.At(ii, jj)
			if math.IsNaN(val) || math.IsInf(val, 0) {
				return nil, &NumericalError{
					Stage:  "covariance",
					Detail: fmt.Sprintf("covariance of %s and %s is %v", returns.AssetNames[ii], returns.AssetNames[jj], val),
				}
			}
		}

		variance := cov.At(ii, ii)
		if variance <= minVariance {
			return nil, &DegenerateAssetError{Asset: returns.AssetNames[ii]}
		}

		res.Means[ii] = stat.Mean(mat.Col(nil, ii, x), nil)
		res.StdDevs[ii] = math.Sqrt(variance)
		res.Volatilities[ii] = res.StdDevs[ii] * math.Sqrt(periodsPerYear)
	}

	for ii := 0; ii < nAssets; ii++ {
		res.Correlation.SetSym(ii, ii, 1.0)
		for jj := ii + 1; jj < nAssets; jj++ {
			rho := cov.At(ii, jj) / (res.StdDevs[ii] * res.StdDevs[jj])
			res.Correlation.SetSym(ii, jj, math.Max(-1.0, math.Min(1.0, rho)))
		}
	}

	log.Debug().Int("NumAssets", nAssets).Int("NumObs", nObs).Floats64("Volatilities", res.Volatilities).Msg("computed covariance matrix")

	return res, nil
}

// symRows converts a symmetric matrix into a row-major slice of slices
func symRows(m mat.Symmetric) [][]float64 {
	n := m.SymmetricDim()
	rows := make([][]float64, n)
	for ii := range rows {
		rows[ii] = make([]float64, n)
		for jj := range rows[ii] {
			rows[ii][jj] = m.At(ii, jj)
		}
	}
	return rows
}
