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
)

// one-tailed standard normal quantiles for the supported confidence levels
var zScoreTable = []struct {
	level float64
	z     float64
}{
	{90, 1.2816},
	{95, 1.6449},
	{99, 2.3263},
	{99.9, 3.0902},
}

// ZScore returns the one-tailed normal quantile for a confidence level given in
// percent (e.g. 95)
func ZScore(confidenceLevel float64) (float64, error) {
	for _, entry := range zScoreTable {
		if math.Abs(entry.level-confidenceLevel) < 1e-9 {
			return entry.z, nil
		}
	}
	return 0, fmt.Errorf("%w: %g", ErrUnsupportedConfidence, confidenceLevel)
}

// SupportedConfidenceLevels lists every confidence level that has a z-score
func SupportedConfidenceLevels() []float64 {
	levels := make([]float64, len(zScoreTable))
	for idx, entry := range zScoreTable {
		levels[idx] = entry.level
	}
	return levels
}

// HorizonVolatility converts an annualized variance into the volatility over
// horizonDays trading days using the square-root-of-time rule. The daily
// volatility is always derived with the 252 trading day convention regardless of
// the frequency of the source data.
func HorizonVolatility(annualizedVariance float64, horizonDays int) float64 {
	dailyVol := math.Sqrt(annualizedVariance / TradingDays)
	return dailyVol * math.Sqrt(float64(horizonDays))
}

// ComputeVar calculates the parametric (delta-normal) value at risk of a position
// worth value with the given annualized variance:
//
//	VaR = z(confidence) * sqrt(annualizedVariance / 252) * sqrt(horizonDays) * value
func ComputeVar(annualizedVariance, value, confidenceLevel float64, horizonDays int) (float64, error) {
	z, err := ZScore(confidenceLevel)
	if err != nil {
		return 0, err
	}

	if horizonDays < 1 {
		return 0, &ValidationError{Messages: []string{fmt.Sprintf("time horizon must be at least 1 day, got %d", horizonDays)}}
	}

	if math.IsNaN(annualizedVariance) || math.IsInf(annualizedVariance, 0) || annualizedVariance < 0 {
		return 0, &NumericalError{Stage: "value at risk", Detail: fmt.Sprintf("variance is %v", annualizedVariance)}
	}

	return z * HorizonVolatility(annualizedVariance, horizonDays) * value, nil
}
