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
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Calculate runs a parametric VaR calculation on upload using scale to derive the
// likelihood and impact scores. Either complete results or an error are
// returned. Calculate keeps no state between calls and is safe to call
// concurrently.
func Calculate(upload *UploadData, scale *ScaleConfig) (*Results, error) {
	return CalculateAt(upload, scale, time.Now())
}

// CalculateAt is Calculate with an explicit calculation date
func CalculateAt(upload *UploadData, scale *ScaleConfig, asOf time.Time) (*Results, error) {
	if upload == nil {
		return nil, &ValidationError{Messages: []string{"no upload data provided"}}
	}

	if msgs := structuralProblems(upload.Holdings, upload.PriceHistory, upload.Config, scale); len(msgs) > 0 {
		return nil, &ValidationError{Messages: msgs}
	}

	cfg := upload.Config
	calculationID := uuid.New().String()
	subLog := log.With().Str("CalculationID", calculationID).Logger()

	assetNames := CanonicalAssets(upload.Holdings)
	subLog.Debug().Strs("Assets", assetNames).Str("Frequency", string(cfg.DataFrequency)).Float64("ConfidenceLevel", cfg.ConfidenceLevel).
		Int("HorizonDays", cfg.TimeHorizonDays).Msg("starting VaR calculation")

	returns, err := BuildReturns(upload.PriceHistory, assetNames, cfg)
	if err != nil {
		return nil, err
	}

	covariance, err := ComputeCovariance(returns, cfg.DataFrequency)
	if err != nil {
		return nil, err
	}

	weights, totalValue, err := ComputeWeights(upload.Holdings, covariance.AssetNames)
	if err != nil {
		return nil, err
	}

	periodicVariance, err := checkVariance(PortfolioVariance(WeightVector(weights), covariance.Covariance), covariance.Covariance)
	if err != nil {
		return nil, err
	}
	annualizedVariance := periodicVariance * covariance.PeriodsPerYear

	portfolioVar, err := ComputeVar(annualizedVariance, totalValue, cfg.ConfidenceLevel, cfg.TimeHorizonDays)
	if err != nil {
		return nil, err
	}

	contributions, err := DecomposeContributions(weights, covariance.Covariance, portfolioVar, cfg)
	if err != nil {
		return nil, err
	}

	assetTypes := make(map[string]AssetType, len(upload.Holdings))
	for _, h := range upload.Holdings {
		assetTypes[h.AssetName] = h.AssetType
	}

	undiversifiedVar := 0.0
	for idx := range contributions {
		contributions[idx].AssetType = assetTypes[contributions[idx].AssetName]
		undiversifiedVar += contributions[idx].StandaloneVar
	}

	volatilityPct := math.Sqrt(annualizedVariance) * 100

	results := &Results{
		CalculationID:          calculationID,
		PortfolioVar:           portfolioVar,
		PortfolioVolatility:    volatilityPct,
		TotalPortfolioValue:    totalValue,
		UndiversifiedVar:       undiversifiedVar,
		DiversificationBenefit: undiversifiedVar - portfolioVar,
		DataPointsCount:        returns.Observations(),
		PeriodStart:            returns.Start,
		PeriodEnd:              returns.Dates[len(returns.Dates)-1],
		LikelihoodScore:        scale.LikelihoodScore(volatilityPct),
		ImpactScore:            scale.ImpactScore(totalValue),
		AssetContributions:     contributions,
		AssetNames:             covariance.AssetNames,
		CorrelationMatrix:      symRows(covariance.Correlation),
		CovarianceMatrix:       symRows(covariance.Annualized()),
		ConfidenceLevel:        cfg.ConfidenceLevel,
		TimeHorizonDays:        cfg.TimeHorizonDays,
		DataFrequency:          cfg.DataFrequency,
		Currency:               cfg.Currency,
		CalculationDate:        asOf,
	}

	subLog.Debug().Float64("PortfolioVar", portfolioVar).Float64("VolatilityPct", volatilityPct).Float64("TotalValue", totalValue).
		Int("Likelihood", results.LikelihoodScore).Int("Impact", results.ImpactScore).Msg("VaR calculation complete")

	return results, nil
}
