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

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// CanonicalAssets returns the ordered list of asset names used for every vector
// and matrix in a calculation. Order follows the holdings; repeated names are
// only listed once.
func CanonicalAssets(holdings []Holding) []string {
	seen := make(map[string]bool, len(holdings))
	names := make([]string, 0, len(holdings))
	for _, h := range holdings {
		if seen[h.AssetName] {
			continue
		}
		seen[h.AssetName] = true
		names = append(names, h.AssetName)
	}
	return names
}

// ComputeWeights calculates the market value and portfolio weight of every asset
// in assetNames. Weights are returned in assetNames order along with the total
// portfolio value. A holding that is not part of assetNames is an error: it cannot
// be priced into the calculation and dropping it would understate risk.
func ComputeWeights(holdings []Holding, assetNames []string) ([]Weight, float64, error) {
	byName := make(map[string]Holding, len(holdings))
	msgs := make([]string, 0)
	for _, h := range holdings {
		if _, ok := byName[h.AssetName]; ok {
			msgs = append(msgs, fmt.Sprintf("duplicate holding for asset %s", h.AssetName))
			continue
		}
		byName[h.AssetName] = h
	}

	inMatrix := make(map[string]bool, len(assetNames))
	for _, name := range assetNames {
		inMatrix[name] = true
		if _, ok := byName[name]; !ok {
			msgs = append(msgs, fmt.Sprintf("asset %s has price history but no holding", name))
		}
	}

	if len(msgs) > 0 {
		return nil, 0, &ValidationError{Messages: msgs}
	}

	excluded := make([]string, 0)
	for _, h := range holdings {
		if !inMatrix[h.AssetName] {
			excluded = append(excluded, h.AssetName)
		}
	}
	if len(excluded) > 0 {
		return nil, 0, &MissingAssetDataError{Assets: excluded}
	}

	values := make([]float64, len(assetNames))
	for idx, name := range assetNames {
		h := byName[name]
		values[idx] = h.MarketValue()
		if values[idx] < 0 || math.IsNaN(values[idx]) || math.IsInf(values[idx], 0) {
			msgs = append(msgs, fmt.Sprintf("asset %s has invalid market value %g", name, values[idx]))
		}
	}
	if len(msgs) > 0 {
		return nil, 0, &ValidationError{Messages: msgs}
	}

	total := floats.Sum(values)
	if total <= 0 {
		return nil, 0, &ValidationError{Messages: []string{"total portfolio value must be greater than zero"}}
	}

	weights := make([]Weight, len(assetNames))
	for idx, name := range assetNames {
		weights[idx] = Weight{
			AssetName:   name,
			MarketValue: values[idx],
			Weight:      values[idx] / total,
		}
	}

	return weights, total, nil
}

// WeightVector extracts the weight of each asset in order
func WeightVector(weights []Weight) []float64 {
	vec := make([]float64, len(weights))
	for idx, w := range weights {
		vec[idx] = w.Weight
	}
	return vec
}

// PortfolioVariance computes the quadratic form w'Σw. weights must be in the same
// asset order as covariance. The result has the same periodicity as covariance.
func PortfolioVariance(weights []float64, covariance mat.Symmetric) float64 {
	w := mat.NewVecDense(len(weights), weights)
	return mat.Inner(w, covariance, w)
}

// checkVariance absorbs rounding error that pushes a (near) zero portfolio
// variance below zero. Materially negative or non-finite values are an error.
func checkVariance(variance float64, covariance mat.Symmetric) (float64, error) {
	if math.IsNaN(variance) || math.IsInf(variance, 0) {
		return 0, &NumericalError{Stage: "portfolio variance", Detail: fmt.Sprintf("w'Σw is %v", variance)}
	}

	if variance >= 0 {
		return variance, nil
	}

	maxDiag := 0.0
	for ii := 0; ii < covariance.SymmetricDim(); ii++ {
		maxDiag = math.Max(maxDiag, covariance.At(ii, ii))
	}

	if variance < -1e-12*maxDiag {
		return 0, &NumericalError{
			Stage:  "portfolio variance",
			Detail: fmt.Sprintf("w'Σw is negative (%g); the covariance matrix is not positive semi-definite", variance),
		}
	}

	return 0, nil
}
