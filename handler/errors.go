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

package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/penny-vault/pv-risk/risk"
)

// ErrorResponse is the body returned for every failed request
type ErrorResponse struct {
	Status  string   `json:"status" example:"error"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

// sendError translates err into an HTTP response. Input problems are reported as
// 422 Unprocessable Entity and everything else as a 500.
func sendError(c *fiber.Ctx, subLog zerolog.Logger, err error) error {
	var validationErr *risk.ValidationError
	if errors.As(err, &validationErr) {
		subLog.Warn().Strs("Problems", validationErr.Messages).Msg("request failed validation")
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{
			Status:  "error",
			Message: "upload failed validation",
			Errors:  validationErr.Messages,
		})
	}

	switch {
	case errors.Is(err, risk.ErrInsufficientData),
		errors.Is(err, risk.ErrInvalidPrice),
		errors.Is(err, risk.ErrDegenerateAsset),
		errors.Is(err, risk.ErrMissingAssetData),
		errors.Is(err, risk.ErrUnsupportedConfidence):
		subLog.Warn().Err(err).Msg("calculation rejected input")
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{
			Status:  "error",
			Message: err.Error(),
			Errors:  []string{err.Error()},
		})
	case errors.Is(err, risk.ErrNumerical):
		subLog.Error().Stack().Err(err).Msg("numerical failure during calculation")
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{
			Status:  "error",
			Message: err.Error(),
			Errors:  []string{err.Error()},
		})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(ErrorResponse{
			Status:  "error",
			Message: fiberErr.Message,
		})
	}

	subLog.Error().Stack().Err(err).Msg("request failed")
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Status:  "error",
		Message: "internal server error",
	})
}
