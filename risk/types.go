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
	"strings"
	"time"

	"github.com/goccy/go-json"
	"gonum.org/v1/gonum/mat"
)

const (
	DateLayout      = "2006-01-02"
	DefaultCurrency = "NGN"
	TradingDays     = 252
)

type AssetType string

const (
	Bond   AssetType = "Bond"
	Equity AssetType = "Equity"
	FX     AssetType = "FX"
	Other  AssetType = "Other"
)

// ParseAssetType converts s to an AssetType ignoring case
func ParseAssetType(s string) (AssetType, error) {
	for _, t := range []AssetType{Bond, Equity, FX, Other} {
		if strings.EqualFold(strings.TrimSpace(s), string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown asset type %q", s)
}

// Holding is a single position in the portfolio
type Holding struct {
	AssetName    string    `json:"asset_name" validate:"required"`
	AssetType    AssetType `json:"asset_type" validate:"oneof=Bond Equity FX Other"`
	Quantity     float64   `json:"quantity" validate:"gt=0"`
	CurrentPrice float64   `json:"current_price" validate:"gt=0"`
	Notes        string    `json:"notes,omitempty"`
}

// MarketValue is quantity x current price
func (h Holding) MarketValue() float64 {
	return h.Quantity * h.CurrentPrice
}

// PriceRow holds all prices observed on a single date. An asset that is absent
// from Prices has no observation on that date.
type PriceRow struct {
	Date   time.Time
	Prices map[string]float64
}

type priceRowJSON struct {
	Date   string             `json:"date"`
	Prices map[string]float64 `json:"prices"`
}

func (r PriceRow) MarshalJSON() ([]byte, error) {
	return json.Marshal(priceRowJSON{
		Date:   r.Date.Format(DateLayout),
		Prices: r.Prices,
	})
}

func (r *PriceRow) UnmarshalJSON(b []byte) error {
	var raw priceRowJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	date, err := ParseDate(raw.Date)
	if err != nil {
		return err
	}
	r.Date = date
	r.Prices = raw.Prices
	if r.Prices == nil {
		r.Prices = make(map[string]float64)
	}
	return nil
}

// ParseDate accepts dates formatted as 2006-01-02 or RFC3339
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if dt, err := time.Parse(DateLayout, s); err == nil {
		return dt, nil
	}
	dt, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("could not parse date %q: expected YYYY-MM-DD", s)
	}
	return dt, nil
}

type Frequency string

const (
	Daily   Frequency = "Daily"
	Weekly  Frequency = "Weekly"
	Monthly Frequency = "Monthly"
)

// ParseFrequency converts s to a Frequency ignoring case
func ParseFrequency(s string) (Frequency, error) {
	for _, f := range []Frequency{Daily, Weekly, Monthly} {
		if strings.EqualFold(strings.TrimSpace(s), string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown data frequency %q: expected Daily, Weekly or Monthly", s)
}

// PeriodsPerYear returns the number of return periods in a year for the frequency
// or 0 if the frequency is not known
func (f Frequency) PeriodsPerYear() float64 {
	switch f {
	case Daily:
		return TradingDays
	case Weekly:
		return 52
	case Monthly:
		return 12
	default:
		return 0
	}
}

// UploadData is the parsed contents of a VaR upload
type UploadData struct {
	Holdings     []Holding  `json:"holdings"`
	PriceHistory []PriceRow `json:"price_history"`
	Config       Config     `json:"config"`
}

// ReturnsMatrix holds aligned periodic returns. AssetNames defines the column
// order used by every downstream computation.
type ReturnsMatrix struct {
	AssetNames []string
	// Start is the first price date used; the first return period begins here
	Start time.Time
	// Dates holds the end date of each return period
	Dates   []time.Time
	Returns [][]float64

	// data is the observation by asset matrix BuildReturns derived Returns from
	data *mat.Dense
}

// Observations is the number of return periods
func (rm *ReturnsMatrix) Observations() int {
	return len(rm.Returns)
}

// Matrix returns the returns as an observation by asset matrix. Every row of
// Returns must have one value per asset.
func (rm *ReturnsMatrix) Matrix() (*mat.Dense, error) {
	if rm.data != nil {
		return rm.data, nil
	}

	nAssets := len(rm.AssetNames)
	x := mat.NewDense(len(rm.Returns), nAssets, nil)
	for rowIdx, row := range rm.Returns {
		if len(row) != nAssets {
			return nil, &NumericalError{
				Stage:  "covariance",
				Detail: fmt.Sprintf("return row %d has %d values, expected %d", rowIdx, len(row), nAssets),
			}
		}
		x.SetRow(rowIdx, row)
	}
	return x, nil
}

// Weight is the share of the portfolio held in a single asset
type Weight struct {
	AssetName   string  `json:"asset_name"`
	MarketValue float64 `json:"market_value"`
	Weight      float64 `json:"weight"`
}

// AssetContribution breaks portfolio VaR down per asset. Volatility is the
// annualized volatility of the asset in percent.
type AssetContribution struct {
	AssetName              string    `json:"asset_name"`
	AssetType              AssetType `json:"asset_type"`
	MarketValue            float64   `json:"market_value"`
	Weight                 float64   `json:"weight"`
	Volatility             float64   `json:"volatility"`
	StandaloneVar          float64   `json:"standalone_var"`
	VarContribution        float64   `json:"var_contribution"`
	VarContributionPct     float64   `json:"var_contribution_pct"`
	DiversificationBenefit float64   `json:"diversification_benefit"`
}

// Results is the output of a VaR calculation. Monetary values are in Currency;
// PortfolioVolatility is annualized and expressed in percent (e.g. 31.75) and
// CovarianceMatrix is annualized.
type Results struct {
	CalculationID          string              `json:"calculation_id"`
	PortfolioVar           float64             `json:"portfolio_var"`
	PortfolioVolatility    float64             `json:"portfolio_volatility"`
	TotalPortfolioValue    float64             `json:"total_portfolio_value"`
	UndiversifiedVar       float64             `json:"undiversified_var"`
	DiversificationBenefit float64             `json:"diversification_benefit"`
	DataPointsCount        int                 `json:"data_points_count"`
	PeriodStart            time.Time           `json:"period_start"`
	PeriodEnd              time.Time           `json:"period_end"`
	LikelihoodScore        int                 `json:"likelihood_score"`
	ImpactScore            int                 `json:"impact_score"`
	AssetContributions     []AssetContribution `json:"asset_contributions"`
	AssetNames             []string            `json:"asset_names"`
	CorrelationMatrix      [][]float64         `json:"correlation_matrix"`
	CovarianceMatrix       [][]float64         `json:"covariance_matrix"`
	ConfidenceLevel        float64             `json:"confidence_level"`
	TimeHorizonDays        int                 `json:"time_horizon_days"`
	DataFrequency          Frequency           `json:"data_frequency"`
	Currency               string              `json:"currency"`
	CalculationDate        time.Time           `json:"calculation_date"`
}
