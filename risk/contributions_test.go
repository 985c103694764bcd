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

package risk_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/penny-vault/pv-risk/risk"
)

var _ = Describe("Contributions", func() {
	var (
		cfg risk.Config
	)

	BeforeEach(func() {
		cfg = dailyConfig()
	})

	Context("with three correlated assets", func() {
		var (
			weights       []risk.Weight
			cov           *mat.SymDense
			portfolioVar  float64
			contributions []risk.AssetContribution
		)

		BeforeEach(func() {
			weights = []risk.Weight{
				{AssetName: "A", MarketValue: 500_000, Weight: 0.5},
				{AssetName: "B", MarketValue: 300_000, Weight: 0.3},
				{AssetName: "C", MarketValue: 200_000, Weight: 0.2},
			}
			cov = mat.NewSymDense(3, []float64{
				0.00010, 0.00003, -0.00001,
				0.00003, 0.00025, 0.00002,
				-0.00001, 0.00002, 0.00040,
			})

			variance := risk.PortfolioVariance(risk.WeightVector(weights), cov)
			var err error
			portfolioVar, err = risk.ComputeVar(variance*252, 1_000_000, cfg.ConfidenceLevel, cfg.TimeHorizonDays)
			Expect(err).To(BeNil())

			contributions, err = risk.DecomposeContributions(weights, cov, portfolioVar, cfg)
			Expect(err).To(BeNil())
		})

		It("sums to the portfolio VaR", func() {
			total := 0.0
			for _, c := range contributions {
				total += c.VarContribution
			}
			Expect((total - portfolioVar) / portfolioVar).To(BeNumerically("~", 0, 1e-6))
		})

		It("has percentages that sum to 100", func() {
			total := 0.0
			for _, c := range contributions {
				total += c.VarContributionPct
				Expect(c.VarContributionPct).To(BeNumerically("~", c.VarContribution/portfolioVar*100, 1e-9))
			}
			Expect(total).To(BeNumerically("~", 100, 1e-9))
		})

		It("computes standalone VaR from the asset variance", func() {
			expected, err := risk.ComputeVar(0.00025*252, 300_000, cfg.ConfidenceLevel, cfg.TimeHorizonDays)
			Expect(err).To(BeNil())
			Expect(contributions[1].StandaloneVar).To(BeNumerically("~", expected, 1e-9))
		})

		It("reports diversification as standalone minus contribution", func() {
			for _, c := range contributions {
				Expect(c.DiversificationBenefit).To(Equal(c.StandaloneVar - c.VarContribution))
				Expect(c.DiversificationBenefit).To(BeNumerically(">", 0))
			}
		})

		It("reports annualized volatility in percent", func() {
			Expect(contributions[0].Volatility).To(BeNumerically("~", 15.874507866, 1e-6))
		})

		It("keeps the asset order", func() {
			Expect(contributions[0].AssetName).To(Equal("A"))
			Expect(contributions[2].AssetName).To(Equal("C"))
			Expect(contributions[2].Weight).To(Equal(0.2))
		})
	})

	Context("when portfolio variance is zero", func() {
		It("assigns zero contributions", func() {
			weights := []risk.Weight{
				{AssetName: "A", MarketValue: 500_000, Weight: 0.5},
				{AssetName: "B", MarketValue: 500_000, Weight: 0.5},
			}
			cov := mat.NewSymDense(2, []float64{
				0.0004, -0.0004,
				-0.0004, 0.0004,
			})

			contributions, err := risk.DecomposeContributions(weights, cov, 0, cfg)
			Expect(err).To(BeNil())
			for _, c := range contributions {
				Expect(c.VarContribution).To(Equal(0.0))
				Expect(c.VarContributionPct).To(Equal(0.0))
				Expect(c.DiversificationBenefit).To(Equal(c.StandaloneVar))
			}
		})
	})

	It("rejects a covariance matrix of the wrong size", func() {
		weights := []risk.Weight{{AssetName: "A", MarketValue: 1, Weight: 1}}
		_, err := risk.DecomposeContributions(weights, mat.NewSymDense(2, nil), 1, cfg)
		Expect(err).To(MatchError(risk.ErrNumerical))
	})
})
