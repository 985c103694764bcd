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

package report_test

import (
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-risk/report"
	"github.com/penny-vault/pv-risk/risk"
)

var _ = Describe("Report", func() {
	DescribeTable("formats money",
		func(amount float64, currency, expected string) {
			Expect(report.FormatMoney(amount, currency)).To(Equal(expected))
		},
		Entry("US dollars", 1234.5, "USD", "$1,234.50"),
		Entry("naira", 5_270_000.0, "NGN", "₦5,270,000.00"),
		Entry("rounds to the minor unit", 0.125, "USD", "$0.13"),
		Entry("unknown currency", 1234.5, "XQQ", "1234.50 XQQ"),
	)

	It("writes the results", func() {
		res := &risk.Results{
			CalculationID:       "b7c2",
			PortfolioVar:        4_652_000,
			PortfolioVolatility: 22.45,
			TotalPortfolioValue: 200_000_000,
			UndiversifiedVar:    6_579_600,
			ConfidenceLevel:     95,
			TimeHorizonDays:     1,
			DataFrequency:       risk.Daily,
			Currency:            "USD",
			DataPointsCount:     1000,
			PeriodStart:         time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			PeriodEnd:           time.Date(2022, 9, 27, 0, 0, 0, 0, time.UTC),
			LikelihoodScore:     5,
			ImpactScore:         2,
			AssetNames:          []string{"EQ1", "EQ2"},
			CorrelationMatrix:   [][]float64{{1, 0.25}, {0.25, 1}},
			AssetContributions: []risk.AssetContribution{
				{AssetName: "EQ1", AssetType: risk.Equity, MarketValue: 100_000_000, Weight: 0.5, VarContributionPct: 50},
				{AssetName: "EQ2", AssetType: risk.Equity, MarketValue: 100_000_000, Weight: 0.5, VarContributionPct: 50},
			},
		}

		sb := &strings.Builder{}
		report.WriteResults(sb, res)
		out := sb.String()
		Expect(out).To(ContainSubstring("Calculation b7c2"))
		Expect(out).To(ContainSubstring("$4,652,000.00"))
		Expect(out).To(ContainSubstring("2020-01-01 to 2022-09-27"))
		Expect(out).To(ContainSubstring("5 / 2"))
		Expect(out).To(ContainSubstring("EQ2"))
		Expect(out).To(ContainSubstring("0.2500"))
	})

	It("lists validation problems", func() {
		sb := &strings.Builder{}
		report.WriteValidation(sb, risk.ValidationResult{Errors: []string{"no price history for asset BOND1"}})
		Expect(sb.String()).To(ContainSubstring("no price history for asset BOND1"))

		sb.Reset()
		report.WriteValidation(sb, risk.ValidationResult{Valid: true})
		Expect(sb.String()).To(Equal("upload is valid\n"))
	})

	It("describes the score bands", func() {
		sb := &strings.Builder{}
		report.WriteScale(sb, risk.DefaultScaleConfig())
		out := sb.String()
		Expect(out).To(ContainSubstring("< 5"))
		Expect(out).To(ContainSubstring("10 - 15"))
		Expect(out).To(ContainSubstring(">= 5000"))
	})
})
