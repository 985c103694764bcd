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

// Package report renders VaR results as text tables
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"github.com/penny-vault/pv-risk/risk"
)

// FormatMoney renders amount in currency using the currency's symbol and minor
// unit. Unknown currencies fall back to the amount followed by the code.
func FormatMoney(amount float64, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return fmt.Sprintf("%s %s", decimal.NewFromFloat(amount).StringFixed(2), strings.ToUpper(currency))
	}

	factor := decimal.New(1, int32(cur.Fraction))
	minor := decimal.NewFromFloat(amount).Mul(factor).Round(0)
	return money.New(minor.IntPart(), cur.Code).Display()
}

func pct(val float64) string {
	return fmt.Sprintf("%.2f%%", val)
}

// WriteResults writes a summary table followed by the per-asset breakdown
func WriteResults(w io.Writer, res *risk.Results) {
	fmt.Fprintf(w, "Calculation %s\n\n", res.CalculationID)

	summary := tablewriter.NewWriter(w)
	summary.SetHeader([]string{"Metric", "Value"})
	summary.SetAutoWrapText(false)
	summary.SetAlignment(tablewriter.ALIGN_LEFT)
	summary.AppendBulk([][]string{
		{"Portfolio VaR", FormatMoney(res.PortfolioVar, res.Currency)},
		{"Undiversified VaR", FormatMoney(res.UndiversifiedVar, res.Currency)},
		{"Diversification Benefit", FormatMoney(res.DiversificationBenefit, res.Currency)},
		{"Total Portfolio Value", FormatMoney(res.TotalPortfolioValue, res.Currency)},
		{"Portfolio Volatility (ann.)", pct(res.PortfolioVolatility)},
		{"Confidence Level", pct(res.ConfidenceLevel)},
		{"Time Horizon", fmt.Sprintf("%d day(s)", res.TimeHorizonDays)},
		{"Data Frequency", string(res.DataFrequency)},
		{"Observations", fmt.Sprintf("%d", res.DataPointsCount)},
		{"Period", fmt.Sprintf("%s to %s", res.PeriodStart.Format(risk.DateLayout), res.PeriodEnd.Format(risk.DateLayout))},
		{"Likelihood / Impact", fmt.Sprintf("%d / %d", res.LikelihoodScore, res.ImpactScore)},
	})
	summary.Render()

	fmt.Fprintln(w)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Asset", "Type", "Market Value", "Weight", "Volatility", "Standalone VaR", "VaR Contribution", "Share", "Benefit"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	for _, c := range res.AssetContributions {
		table.Append([]string{
			c.AssetName,
			string(c.AssetType),
			FormatMoney(c.MarketValue, res.Currency),
			pct(c.Weight * 100),
			pct(c.Volatility),
			FormatMoney(c.StandaloneVar, res.Currency),
			FormatMoney(c.VarContribution, res.Currency),
			pct(c.VarContributionPct),
			FormatMoney(c.DiversificationBenefit, res.Currency),
		})
	}
	table.SetFooter([]string{"Total", "", FormatMoney(res.TotalPortfolioValue, res.Currency), "100.00%", "",
		FormatMoney(res.UndiversifiedVar, res.Currency), FormatMoney(res.PortfolioVar, res.Currency), "100.00%",
		FormatMoney(res.DiversificationBenefit, res.Currency)})
	table.Render()

	fmt.Fprintln(w)
	WriteCorrelation(w, res.AssetNames, res.CorrelationMatrix)
}

// WriteCorrelation writes the correlation matrix with asset names on both axes
func WriteCorrelation(w io.Writer, assetNames []string, correlation [][]float64) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(append([]string{"Correlation"}, assetNames...))
	table.SetBorder(false)
	for idx, row := range correlation {
		cells := make([]string, 0, len(row)+1)
		cells = append(cells, assetNames[idx])
		for _, val := range row {
			cells = append(cells, fmt.Sprintf("%.4f", val))
		}
		table.Append(cells)
	}
	table.Render()
}

// WriteValidation lists validation problems, or a confirmation when none were found
func WriteValidation(w io.Writer, res risk.ValidationResult) {
	if res.Valid {
		fmt.Fprintln(w, "upload is valid")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Problem"})
	table.SetAutoWrapText(false)
	for idx, msg := range res.Errors {
		table.Append([]string{fmt.Sprintf("%d", idx+1), msg})
	}
	table.Render()
}

// WriteScale shows the score bands defined by sc
func WriteScale(w io.Writer, sc *risk.ScaleConfig) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Score", "Volatility (%)", "Value (millions)"})
	for score := 1; score <= sc.MatrixSize; score++ {
		table.Append([]string{fmt.Sprintf("%d", score), band(sc.VolatilityThresholds, score), band(sc.ValueThresholds, score)})
	}
	table.Render()
}

// band describes the half open interval of values mapped to score
func band(thresholds []float64, score int) string {
	switch {
	case len(thresholds) == 0:
		return ""
	case score == 1:
		return fmt.Sprintf("< %g", thresholds[0])
	case score > len(thresholds):
		return fmt.Sprintf(">= %g", thresholds[len(thresholds)-1])
	default:
		return fmt.Sprintf("%g - %g", thresholds[score-2], thresholds[score-1])
	}
}
