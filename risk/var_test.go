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
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/penny-vault/pv-risk/risk"
)

var _ = Describe("VaR", func() {
	DescribeTable("z-scores match the one-tailed normal quantile",
		func(level, expected float64) {
			z, err := risk.ZScore(level)
			Expect(err).To(BeNil())
			Expect(z).To(Equal(expected))
			Expect(z).To(BeNumerically("~", distuv.UnitNormal.Quantile(level/100), 1e-4))
		},
		Entry("90%", 90.0, 1.2816),
		Entry("95%", 95.0, 1.6449),
		Entry("99%", 99.0, 2.3263),
		Entry("99.9%", 99.9, 3.0902),
	)

	It("rejects unsupported confidence levels", func() {
		_, err := risk.ZScore(97.5)
		Expect(err).To(MatchError(risk.ErrUnsupportedConfidence))
	})

	It("lists the supported confidence levels", func() {
		Expect(risk.SupportedConfidenceLevels()).To(Equal([]float64{90, 95, 99, 99.9}))
	})

	It("derives daily volatility with 252 trading days", func() {
		Expect(risk.HorizonVolatility(0.0004*252, 1)).To(BeNumerically("~", 0.02, 1e-15))
	})

	It("scales with the square root of the horizon", func() {
		one, err := risk.ComputeVar(0.04, 1_000_000, 99, 1)
		Expect(err).To(BeNil())
		ten, err := risk.ComputeVar(0.04, 1_000_000, 99, 10)
		Expect(err).To(BeNil())
		Expect(ten / one).To(BeNumerically("~", math.Sqrt(10), 1e-12))
	})

	It("computes the delta-normal VaR", func() {
		// 20% annual vol, 95%, 1 day, 1M
		v, err := risk.ComputeVar(0.04, 1_000_000, 95, 1)
		Expect(err).To(BeNil())
		Expect(v).To(BeNumerically("~", 1.6449*0.2/math.Sqrt(252)*1_000_000, 1e-6))
	})

	It("is zero for a zero variance", func() {
		v, err := risk.ComputeVar(0, 1_000_000, 95, 1)
		Expect(err).To(BeNil())
		Expect(v).To(Equal(0.0))
	})

	It("rejects a negative variance", func() {
		_, err := risk.ComputeVar(-0.01, 1_000_000, 95, 1)
		Expect(err).To(MatchError(risk.ErrNumerical))
	})

	It("rejects a horizon below one day", func() {
		_, err := risk.ComputeVar(0.04, 1_000_000, 95, 0)
		Expect(err).To(MatchError(risk.ErrValidation))
	})
})
