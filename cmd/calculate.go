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

package cmd

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/penny-vault/pv-risk/report"
	"github.com/penny-vault/pv-risk/risk"
	"github.com/penny-vault/pv-risk/store"
	"github.com/penny-vault/pv-risk/upload"
)

var (
	calculateJSON       bool
	calculateConfidence float64
	calculateHorizon    int
	calculateFrequency  string
	calculateCurrency   string
)

func init() {
	calculateCmd.Flags().BoolVar(&calculateJSON, "json", false, "print results as JSON")
	calculateCmd.Flags().Float64Var(&calculateConfidence, "confidence", 0, "override the confidence level (90, 95, 99 or 99.9)")
	calculateCmd.Flags().IntVar(&calculateHorizon, "horizon", 0, "override the time horizon in days")
	calculateCmd.Flags().StringVar(&calculateFrequency, "frequency", "", "override the data frequency (Daily, Weekly or Monthly)")
	calculateCmd.Flags().StringVar(&calculateCurrency, "currency", "", "override the portfolio currency")

	rootCmd.AddCommand(calculateCmd)
}

// loadUpload parses the upload in path and applies command line overrides
func loadUpload(cmd *cobra.Command, path string) (*risk.UploadData, error) {
	data, err := upload.ParseFile(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("confidence") {
		data.Config.ConfidenceLevel = risk.NormalizeConfidence(calculateConfidence)
	}
	if flags.Changed("horizon") {
		data.Config.TimeHorizonDays = calculateHorizon
	}
	if flags.Changed("frequency") {
		freq, err := risk.ParseFrequency(calculateFrequency)
		if err != nil {
			return nil, err
		}
		data.Config.DataFrequency = freq
	}
	if flags.Changed("currency") {
		data.Config.Currency = risk.NormalizeCurrency(calculateCurrency)
	}

	return data, nil
}

// printProblems lists validation problems carried by err
func printProblems(err error) {
	if validationErr, ok := err.(*risk.ValidationError); ok {
		report.WriteValidation(os.Stderr, risk.ValidationResult{Errors: validationErr.Messages})
	}
}

var calculateCmd = &cobra.Command{
	Use:   "calculate <file>",
	Short: "Calculate portfolio VaR for an upload",
	Long: `Calculate the parametric Value-at-Risk of the portfolio described in an Excel
workbook (.xlsx) or JSON document. The risk matrix scale is read from the
configured scale store.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		subLog := log.With().Str("File", args[0]).Logger()

		data, err := loadUpload(cmd, args[0])
		if err != nil {
			subLog.Error().Stack().Err(err).Msg("could not read upload")
			printProblems(err)
			return err
		}

		scaleStore, err := store.FromConfig(cmd.Context())
		if err != nil {
			return err
		}
		scale, err := scaleStore.Load(cmd.Context())
		if err != nil {
			return err
		}

		results, err := risk.Calculate(data, scale)
		if err != nil {
			subLog.Error().Stack().Err(err).Msg("VaR calculation failed")
			printProblems(err)
			return err
		}

		if calculateJSON {
			out, err := json.MarshalIndent(results, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}

		report.WriteResults(os.Stdout, results)
		return nil
	},
}
