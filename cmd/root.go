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

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/penny-vault/pv-risk/common"
)

var Profile bool

func init() {
	cobra.OnInitialize(initLogging)

	// Logging configuration
	viper.BindEnv("log.level", "PVRISK_LOG_LEVEL")
	rootCmd.PersistentFlags().String("log-level", "warning", "Logging level")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	viper.BindEnv("log.report_caller", "PVRISK_LOG_REPORT_CALLER")
	rootCmd.PersistentFlags().Bool("log-report-caller", false, "Log function name that called log statement")
	viper.BindPFlag("log.report_caller", rootCmd.PersistentFlags().Lookup("log-report-caller"))

	viper.BindEnv("log.output", "PVRISK_LOG_OUTPUT")
	rootCmd.PersistentFlags().String("log-output", "stderr", "Write logs to specified output one of: file path, `stdout`, or `stderr`")
	viper.BindPFlag("log.output", rootCmd.PersistentFlags().Lookup("log-output"))

	viper.BindEnv("log.pretty", "PVRISK_LOG_PRETTY")
	rootCmd.PersistentFlags().Bool("log-pretty", true, "Pretty print log messages")
	viper.BindPFlag("log.pretty", rootCmd.PersistentFlags().Lookup("log-pretty"))

	// Scale configuration store
	viper.BindEnv("scale.store", "PVRISK_SCALE_STORE")
	rootCmd.PersistentFlags().String("scale-store", "file", "Where the risk matrix scale is stored: `file` or `postgres`")
	viper.BindPFlag("scale.store", rootCmd.PersistentFlags().Lookup("scale-store"))

	viper.BindEnv("scale.path", "PVRISK_SCALE_PATH")
	rootCmd.PersistentFlags().String("scale-path", "scale.toml", "Path of the scale config file when scale-store is file")
	viper.BindPFlag("scale.path", rootCmd.PersistentFlags().Lookup("scale-path"))

	// Database
	viper.BindEnv("database.url", "DATABASE_URL")
	rootCmd.PersistentFlags().String("database-url", "", "PostgreSQL connection string")
	viper.BindPFlag("database.url", rootCmd.PersistentFlags().Lookup("database-url"))

	rootCmd.PersistentFlags().BoolVar(&Profile, "cpu-profile", false, "Run pprof and save in profile.out")
}

var rootCmd = &cobra.Command{
	Use:     common.ProgramName,
	Version: common.CurrentVersion.String(),
	Short:   "Parametric Value-at-Risk for investment portfolios",
	Long: `pvrisk calculates the parametric (variance-covariance) Value-at-Risk of a
portfolio from its holdings and price history, breaks the VaR down into per-asset
contributions and maps the result onto a likelihood / impact risk matrix.`,
	SilenceUsage: true,
}

func initLogging() {
	common.SetupLogging()
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
