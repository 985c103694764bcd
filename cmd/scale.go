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
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/penny-vault/pv-risk/report"
	"github.com/penny-vault/pv-risk/risk"
	"github.com/penny-vault/pv-risk/store"
)

var (
	scaleMatrixSize int
	scaleVolatility []float64
	scaleValue      []float64
)

func init() {
	scaleSetCmd.Flags().IntVar(&scaleMatrixSize, "size", risk.DefaultMatrixSize, "risk matrix size (5 or 6)")
	scaleSetCmd.Flags().Float64SliceVar(&scaleVolatility, "volatility", risk.DefaultScaleConfig().VolatilityThresholds, "ascending volatility thresholds in percent")
	scaleSetCmd.Flags().Float64SliceVar(&scaleValue, "value", risk.DefaultScaleConfig().ValueThresholds, "ascending portfolio value thresholds in millions")

	scaleCmd.AddCommand(scaleShowCmd)
	scaleCmd.AddCommand(scaleSetCmd)
	rootCmd.AddCommand(scaleCmd)
}

var scaleCmd = &cobra.Command{
	Use:   "scale",
	Short: "Show or change the risk matrix scale",
}

var scaleShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored risk matrix scale",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		scaleStore, err := store.FromConfig(cmd.Context())
		if err != nil {
			return err
		}
		sc, err := scaleStore.Load(cmd.Context())
		if err != nil {
			return err
		}
		report.WriteScale(os.Stdout, sc)
		return nil
	},
}

var scaleSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Validate and store a new risk matrix scale",
	Example: `  pvrisk scale set --size 5 --volatility 5,10,15,20 --value 100,500,1000,5000
  pvrisk scale set --size 6 --volatility 5,10,15,20,30 --value 100,500,1000,5000,10000`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := risk.NewScaleConfig(scaleMatrixSize, scaleVolatility, scaleValue)
		if err != nil {
			printProblems(err)
			return err
		}

		scaleStore, err := store.FromConfig(cmd.Context())
		if err != nil {
			return err
		}
		if err := scaleStore.Save(cmd.Context(), sc); err != nil {
			log.Error().Stack().Err(err).Msg("could not save scale config")
			return err
		}

		report.WriteScale(os.Stdout, sc)
		return nil
	},
}
