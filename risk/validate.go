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
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidationResult is the outcome of ValidateUploadData
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// structProblems runs the struct tag validations on s and converts each field
// error into a human readable message prefixed with prefix
func structProblems(prefix string, s interface{}) []string {
	err := structValidator.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return []string{fmt.Sprintf("%s: %s", prefix, err.Error())}
	}

	msgs := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		var rule string
		switch fe.Tag() {
		case "required":
			rule = "is required"
		case "oneof":
			rule = fmt.Sprintf("must be one of %s, got %q", strings.ReplaceAll(fe.Param(), " ", ", "), fmt.Sprint(fe.Value()))
		case "gt":
			rule = fmt.Sprintf("must be greater than %s, got %v", fe.Param(), fe.Value())
		case "gte":
			rule = fmt.Sprintf("must be at least %s, got %v", fe.Param(), fe.Value())
		case "len":
			rule = fmt.Sprintf("must be %s characters long", fe.Param())
		case "alpha":
			rule = "must only contain letters"
		default:
			rule = fmt.Sprintf("failed %s validation", fe.Tag())
		}
		msgs = append(msgs, fmt.Sprintf("%s %s %s", prefix, fe.Field(), rule))
	}
	return msgs
}

// structuralProblems performs every check that does not require building the
// returns matrix
func structuralProblems(holdings []Holding, priceHistory []PriceRow, cfg Config, scale *ScaleConfig) []string {
	msgs := make([]string, 0)
	msgs = append(msgs, cfg.problems()...)
	msgs = append(msgs, scale.problems()...)

	if len(holdings) == 0 {
		msgs = append(msgs, "portfolio holdings are empty")
	}

	seen := make(map[string]bool, len(holdings))
	for idx, h := range holdings {
		prefix := fmt.Sprintf("holding %d (%s)", idx+1, h.AssetName)
		msgs = append(msgs, structProblems(prefix, h)...)
		if h.AssetName == "" {
			continue
		}
		if seen[h.AssetName] {
			msgs = append(msgs, fmt.Sprintf("duplicate holding for asset %s", h.AssetName))
		}
		seen[h.AssetName] = true
	}

	if len(priceHistory) == 0 {
		msgs = append(msgs, "price history is empty")
		return msgs
	}

	dates := make(map[string]bool, len(priceHistory))
	for _, row := range priceHistory {
		key := row.Date.Format(DateLayout)
		if row.Date.IsZero() {
			msgs = append(msgs, "price history contains a row without a date")
			continue
		}
		if dates[key] {
			msgs = append(msgs, fmt.Sprintf("price history has more than one row for %s", key))
		}
		dates[key] = true
	}

	for _, name := range CanonicalAssets(holdings) {
		if name == "" {
			continue
		}

		cnt := 0
		reported := false
		for _, row := range priceHistory {
			price, ok := row.Prices[name]
			if !ok {
				continue
			}
			cnt++
			if !reported && (math.IsNaN(price) || math.IsInf(price, 0) || price <= 0) {
				msgs = append(msgs, fmt.Sprintf("price for %s on %s is %g; prices must be greater than zero", name, row.Date.Format(DateLayout), price))
				reported = true
			}
		}

		if cnt == 0 {
			msgs = append(msgs, fmt.Sprintf("no price history for asset %s", name))
		}
	}

	return msgs
}

// ValidateUploadData checks holdings, price history, configuration and scale
// configuration before a calculation is attempted. Every problem found is
// reported. When the inputs are structurally sound the returns matrix and
// covariance matrix are built to confirm that enough aligned observations are
// available and that no asset has a flat price series.
func ValidateUploadData(holdings []Holding, priceHistory []PriceRow, cfg Config, scale *ScaleConfig) ValidationResult {
	msgs := structuralProblems(holdings, priceHistory, cfg, scale)
	if len(msgs) == 0 {
		returns, err := BuildReturns(priceHistory, CanonicalAssets(holdings), cfg)
		if err == nil {
			_, err = ComputeCovariance(returns, cfg.DataFrequency)
		}
		if err != nil {
			msgs = append(msgs, err.Error())
		}
	}

	return ValidationResult{
		Valid:  len(msgs) == 0,
		Errors: msgs,
	}
}
