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
	"strings"
)

const (
	DefaultMinDataPointsDaily   = 30
	DefaultMinDataPointsMonthly = 12
)

// Config controls how the VaR calculation is performed
type Config struct {
	DataFrequency        Frequency `json:"data_frequency" validate:"required,oneof=Daily Weekly Monthly"`
	ConfidenceLevel      float64   `json:"confidence_level" validate:"required"`
	TimeHorizonDays      int       `json:"time_horizon_days" validate:"gte=1"`
	Currency             string    `json:"currency" validate:"required,len=3,alpha"`
	MinDataPointsDaily   int       `json:"min_data_points_daily" validate:"gte=2"`
	MinDataPointsMonthly int       `json:"min_data_points_monthly" validate:"gte=2"`
}

// DefaultConfig returns a daily, 95%, 1-day configuration
func DefaultConfig() Config {
	return Config{
		DataFrequency:        Daily,
		ConfidenceLevel:      95,
		TimeHorizonDays:      1,
		Currency:             DefaultCurrency,
		MinDataPointsDaily:   DefaultMinDataPointsDaily,
		MinDataPointsMonthly: DefaultMinDataPointsMonthly,
	}
}

// NewConfig builds a Config and validates it
func NewConfig(frequency Frequency, confidenceLevel float64, horizonDays int, currency string, minDaily, minMonthly int) (*Config, error) {
	cfg := &Config{
		DataFrequency:        frequency,
		ConfidenceLevel:      confidenceLevel,
		TimeHorizonDays:      horizonDays,
		Currency:             currency,
		MinDataPointsDaily:   minDaily,
		MinDataPointsMonthly: minMonthly,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NormalizeConfidence converts 0.95 style fractions to percentages
func NormalizeConfidence(level float64) float64 {
	if level > 0 && level < 1 {
		return level * 100
	}
	return level
}

// NormalizeCurrency upper-cases an ISO 4217 code; a blank code is the default
// currency
func NormalizeCurrency(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return DefaultCurrency
	}
	return strings.ToUpper(code)
}

// Validate checks the shape of the configuration. The returned error is a
// *ValidationError listing every problem found.
func (cfg Config) Validate() error {
	msgs := cfg.problems()
	if len(msgs) > 0 {
		return &ValidationError{Messages: msgs}
	}
	return nil
}

func (cfg Config) problems() []string {
	msgs := structProblems("config", cfg)
	if cfg.ConfidenceLevel != 0 {
		if _, err := ZScore(cfg.ConfidenceLevel); err != nil {
			msgs = append(msgs, fmt.Sprintf("config confidence_level %g is not supported: expected one of 90, 95, 99, 99.9", cfg.ConfidenceLevel))
		}
	}
	return msgs
}

// MinDataPoints returns the minimum number of return observations required for
// the configured frequency. Weekly data scales the monthly minimum by 52/12.
func (cfg Config) MinDataPoints() int {
	switch cfg.DataFrequency {
	case Daily:
		return cfg.MinDataPointsDaily
	case Weekly:
		return int(math.Ceil(float64(cfg.MinDataPointsMonthly) * 52.0 / 12.0))
	default:
		return cfg.MinDataPointsMonthly
	}
}
