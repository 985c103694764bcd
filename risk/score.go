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

const (
	DefaultMatrixSize = 5
	MaxMatrixSize     = 6
)

// ScaleConfig maps portfolio volatility and portfolio value onto the likelihood
// and impact axes of a MatrixSize x MatrixSize qualitative risk matrix. Each
// threshold list has MatrixSize-1 strictly ascending entries: volatility
// thresholds are in percent and value thresholds are in millions of the
// portfolio currency.
type ScaleConfig struct {
	MatrixSize           int       `json:"matrix_size" toml:"matrix_size"`
	VolatilityThresholds []float64 `json:"volatility_thresholds" toml:"volatility_thresholds"`
	ValueThresholds      []float64 `json:"value_thresholds" toml:"value_thresholds"`
}

// DefaultScaleConfig returns the standard 5x5 scale
func DefaultScaleConfig() *ScaleConfig {
	return &ScaleConfig{
		MatrixSize:           DefaultMatrixSize,
		VolatilityThresholds: []float64{5, 10, 15, 20},
		ValueThresholds:      []float64{100, 500, 1000, 5000},
	}
}

// NewScaleConfig copies the thresholds into a new ScaleConfig and validates it
func NewScaleConfig(matrixSize int, volatilityThresholds, valueThresholds []float64) (*ScaleConfig, error) {
	sc := &ScaleConfig{
		MatrixSize:           matrixSize,
		VolatilityThresholds: make([]float64, len(volatilityThresholds)),
		ValueThresholds:      make([]float64, len(valueThresholds)),
	}
	copy(sc.VolatilityThresholds, volatilityThresholds)
	copy(sc.ValueThresholds, valueThresholds)

	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

// Validate checks the matrix size and that both threshold lists are ascending
// and sized for the matrix. The returned error is a *ValidationError.
func (sc *ScaleConfig) Validate() error {
	msgs := sc.problems()
	if len(msgs) > 0 {
		return &ValidationError{Messages: msgs}
	}
	return nil
}

func (sc *ScaleConfig) problems() []string {
	if sc == nil {
		return []string{"scale configuration is missing"}
	}

	if sc.MatrixSize != DefaultMatrixSize && sc.MatrixSize != MaxMatrixSize {
		return []string{fmt.Sprintf("risk matrix size %d is not supported: expected 5 or 6", sc.MatrixSize)}
	}

	msgs := make([]string, 0)
	msgs = append(msgs, thresholdProblems("volatility thresholds", sc.VolatilityThresholds, sc.MatrixSize)...)
	msgs = append(msgs, thresholdProblems("value thresholds", sc.ValueThresholds, sc.MatrixSize)...)
	return msgs
}

func thresholdProblems(label string, thresholds []float64, matrixSize int) []string {
	msgs := make([]string, 0)
	if len(thresholds) != matrixSize-1 {
		msgs = append(msgs, fmt.Sprintf("%s must contain %d values for a %dx%d matrix, got %d", label, matrixSize-1, matrixSize, matrixSize, len(thresholds)))
	}

	for idx, t := range thresholds {
		if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
			msgs = append(msgs, fmt.Sprintf("%s must be non-negative numbers, got %g", label, t))
			return msgs
		}
		if idx > 0 && t <= thresholds[idx-1] {
			msgs = append(msgs, fmt.Sprintf("%s must be in ascending order", label))
			return msgs
		}
	}

	return msgs
}

// LikelihoodScore maps annualized portfolio volatility, in percent, to a score
func (sc *ScaleConfig) LikelihoodScore(volatilityPct float64) int {
	return MapToScore(volatilityPct, sc.VolatilityThresholds, sc.MatrixSize)
}

// ImpactScore maps total portfolio value, in currency units, to a score. The value
// is compared to the thresholds in millions.
func (sc *ScaleConfig) ImpactScore(totalValue float64) int {
	return MapToScore(totalValue/1_000_000, sc.ValueThresholds, sc.MatrixSize)
}

// MapToScore returns the band that value falls in: 1 if value < thresholds[0],
// 2 if thresholds[0] <= value < thresholds[1] and so on. The score is clamped to
// [1, matrixSize]. thresholds must be ascending.
func MapToScore(value float64, thresholds []float64, matrixSize int) int {
	score := 1
	for _, t := range thresholds {
		if value >= t {
			score++
		}
	}

	if score > matrixSize {
		score = matrixSize
	}
	if score < 1 {
		score = 1
	}
	return score
}
