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
	"errors"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/penny-vault/pv-risk/report"
	"github.com/penny-vault/pv-risk/risk"
	"github.com/penny-vault/pv-risk/store"
)

var ErrInvalidUpload = errors.New("upload is not valid")

func init() {
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check an upload before calculating VaR",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := loadUpload(cmd, args[0])
		if err != nil {
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

		res := risk.ValidateUploadData(data.Holdings, data.PriceHistory, data.Config, scale)
		report.WriteValidation(os.Stdout, res)
		if !res.Valid {
			log.Debug().Int("NumProblems", len(res.Errors)).Str("File", args[0]).Msg("upload failed validation")
			return ErrInvalidUpload
		}
		return nil
	},
}
