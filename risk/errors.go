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
	"strings"
	"time"
)

var (
	ErrValidation            = errors.New("validation failed")
	ErrInsufficientData      = errors.New("insufficient data")
	ErrInvalidPrice          = errors.New("invalid price")
	ErrDegenerateAsset       = errors.New("degenerate asset")
	ErrMissingAssetData      = errors.New("missing asset data")
	ErrNumerical             = errors.New("numerical error")
	ErrUnsupportedConfidence = errors.New("unsupported confidence level")
)

// ValidationError is a user-fixable input problem. Messages holds every problem
// found, not just the first.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	if len(e.Messages) == 0 {
		return ErrValidation.Error()
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(e.Messages, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// InsufficientDataError is returned when fewer aligned observations are available
// than the configured minimum for the data frequency
type InsufficientDataError struct {
	Have      int
	Need      int
	Frequency Frequency
	Start     time.Time
	End       time.Time
	// Assets lists assets that have gaps in the price history, if any
	Assets []string
}

func (e *InsufficientDataError) Error() string {
	msg := fmt.Sprintf("%s: %d aligned %s observations available but %d required", ErrInsufficientData.Error(), e.Have, strings.ToLower(string(e.Frequency)), e.Need)
	if !e.Start.IsZero() {
		msg += fmt.Sprintf(" (usable range %s to %s)", e.Start.Format(DateLayout), e.End.Format(DateLayout))
	}
	if len(e.Assets) > 0 {
		msg += fmt.Sprintf("; gaps in price history for %s", strings.Join(e.Assets, ", "))
	}
	return msg
}

func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

// InvalidPriceError is returned when a price is zero, negative or not a number
type InvalidPriceError struct {
	Asset string
	Date  time.Time
	Price float64
}

func (e *InvalidPriceError) Error() string {
	return fmt.Sprintf("%s: %s has price %g on %s; prices must be greater than zero", ErrInvalidPrice.Error(), e.Asset, e.Price, e.Date.Format(DateLayout))
}

func (e *InvalidPriceError) Is(target error) bool {
	return target == ErrInvalidPrice
}

// DegenerateAssetError is returned when an asset's returns have zero variance
type DegenerateAssetError struct {
	Asset string
}

func (e *DegenerateAssetError) Error() string {
	return fmt.Sprintf("%s: %s has zero return variance over the calculation window (flat price series)", ErrDegenerateAsset.Error(), e.Asset)
}

func (e *DegenerateAssetError) Is(target error) bool {
	return target == ErrDegenerateAsset
}

// MissingAssetDataError is returned when holdings cannot be priced into the calculation
type MissingAssetDataError struct {
	Assets []string
}

func (e *MissingAssetDataError) Error() string {
	return fmt.Sprintf("%s: no usable price history for %s", ErrMissingAssetData.Error(), strings.Join(e.Assets, ", "))
}

func (e *MissingAssetDataError) Is(target error) bool {
	return target == ErrMissingAssetData
}

// NumericalError is returned when a computation produces NaN, Inf or an otherwise
// impossible value
type NumericalError struct {
	Stage  string
	Detail string
}

func (e *NumericalError) Error() string {
	return fmt.Sprintf("%s in %s: %s", ErrNumerical.Error(), e.Stage, e.Detail)
}

func (e *NumericalError) Is(target error) bool {
	return target == ErrNumerical
}
