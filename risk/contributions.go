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

	"gonum.org/v1/gonum/mat"
)

// DecomposeContributions splits portfolioVar into additive per-asset pieces using
// the Euler allocation
//
//	contribution_i = portfolioVar * w_i * (Σw)_i / (w'Σw)
//
// so that the contributions sum to portfolioVar. covariance is the periodic
// covariance matrix in the same asset order as weights. Each asset's standalone
// VaR is computed from its own variance and market value using the confidence
// level and horizon in cfg.
func DecomposeContributions(weights []Weight, covariance mat.Symmetric, portfolioVar float64, cfg Config) ([]AssetContribution, error) {
	nAssets := len(weights)
	if covariance.SymmetricDim() != nAssets {
		return nil, &NumericalError{
			Stage:  "contribution",
			Detail: fmt.Sprintf("covariance matrix is %dx%d but there are %d weights", covariance.SymmetricDim(), covariance.SymmetricDim(), nAssets),
		}
	}

	periodsPerYear := cfg.DataFrequency.PeriodsPerYear()

	w := mat.NewVecDense(nAssets, WeightVector(weights))
	var marginal mat.VecDense
	marginal.MulVec(covariance, w)
	variance := mat.Dot(w, &marginal)

	contributions := make([]AssetContribution, nAssets)
	for idx, weight := range weights {
		assetVariance := covariance.At(idx, idx) * periodsPerYear
		standalone, err := ComputeVar(assetVariance, weight.MarketValue, cfg.ConfidenceLevel, cfg.TimeHorizonDays)
		if err != nil {
			return nil, err
		}

		contribution := 0.0
		if variance > 0 {
			contribution = portfolioVar * (weight.Weight * marginal.AtVec(idx) / variance)
		}

		pct := 0.0
		if portfolioVar != 0 {
			pct = contribution / portfolioVar * 100
		}

		contributions[idx] = AssetContribution{
			AssetName:              weight.AssetName,
			MarketValue:            weight.MarketValue,
			Weight:                 weight.Weight,
			Volatility:             math.Sqrt(assetVariance) * 100,
			StandaloneVar:          standalone,
			VarContribution:        contribution,
			VarContributionPct:     pct,
			DiversificationBenefit: standalone - contribution,
		}
	}

	return contributions, nil
}
