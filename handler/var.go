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
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/penny-vault/pv-risk/common"
	"github.com/penny-vault/pv-risk/observability/opentelemetry"
	"github.com/penny-vault/pv-risk/risk"
	"github.com/penny-vault/pv-risk/store"
	"github.com/penny-vault/pv-risk/upload"
)

const (
	UploadField    = "file"
	maxUploadBytes = 32 << 20
)

// VarHandler serves the VaR endpoints. The active scale configuration is loaded
// from the store at construction and replaced only after a successful save.
type VarHandler struct {
	store store.ScaleStore
	cache *common.Cache

	mu    sync.RWMutex
	scale *risk.ScaleConfig
}

// NewVarHandler loads the scale configuration from scaleStore. cache may be nil
// to disable result caching.
func NewVarHandler(ctx context.Context, scaleStore store.ScaleStore, cache *common.Cache) (*VarHandler, error) {
	sc, err := scaleStore.Load(ctx)
	if err != nil {
		log.Error().Stack().Err(err).Msg("could not load scale config")
		return nil, err
	}

	return &VarHandler{
		store: scaleStore,
		cache: cache,
		scale: sc,
	}, nil
}

// Scale returns a copy of the active scale configuration
func (h *VarHandler) Scale() *risk.ScaleConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sc := &risk.ScaleConfig{
		MatrixSize:           h.scale.MatrixSize,
		VolatilityThresholds: make([]float64, len(h.scale.VolatilityThresholds)),
		ValueThresholds:      make([]float64, len(h.scale.ValueThresholds)),
	}
	copy(sc.VolatilityThresholds, h.scale.VolatilityThresholds)
	copy(sc.ValueThresholds, h.scale.ValueThresholds)
	return sc
}

func startSpan(c *fiber.Ctx, name string) (context.Context, trace.Span) {
	tracer := otel.Tracer(opentelemetry.Name)
	return tracer.Start(c.UserContext(), name, trace.WithAttributes(opentelemetry.SpanAttributesFromFiber(c)...))
}

func fail(c *fiber.Ctx, span trace.Span, subLog zerolog.Logger, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return sendError(c, subLog, err)
}

// Validate checks a JSON upload without calculating VaR
func (h *VarHandler) Validate(c *fiber.Ctx) error {
	_, span := startSpan(c, "var.validate")
	defer span.End()

	subLog := log.With().Str("Endpoint", "validate").Logger()

	data, err := upload.ParseJSON(bytes.NewReader(c.Body()))
	if err != nil {
		return fail(c, span, subLog, err)
	}

	return h.validate(c, span, data)
}

func (h *VarHandler) validate(c *fiber.Ctx, span trace.Span, data *risk.UploadData) error {
	res := risk.ValidateUploadData(data.Holdings, data.PriceHistory, data.Config, h.Scale())
	span.SetAttributes(attribute.Bool("var.valid", res.Valid), attribute.Int("var.num_errors", len(res.Errors)))
	return c.JSON(res)
}

// Calculate computes VaR for a JSON upload. Results are cached by the content of
// the upload and the active scale configuration; the X-Cache response header is
// HIT when a cached result is served. A cached result keeps the calculation_id
// and calculation_date of the calculation that produced it.
func (h *VarHandler) Calculate(c *fiber.Ctx) error {
	ctx, span := startSpan(c, "var.calculate")
	defer span.End()

	subLog := log.With().Str("Endpoint", "calculate").Logger()

	data, err := upload.ParseJSON(bytes.NewReader(c.Body()))
	if err != nil {
		return fail(c, span, subLog, err)
	}

	return h.calculate(ctx, c, span, subLog, data)
}

// Upload accepts a multipart form with an Excel workbook (or JSON document) in
// the file field. Setting the validate query parameter only validates the
// upload.
func (h *VarHandler) Upload(c *fiber.Ctx) error {
	ctx, span := startSpan(c, "var.upload")
	defer span.End()

	subLog := log.With().Str("Endpoint", "upload").Logger()

	fh, err := c.FormFile(UploadField)
	if err != nil {
		return fail(c, span, subLog, &risk.ValidationError{Messages: []string{"multipart field file with the workbook is required"}})
	}

	subLog = subLog.With().Str("FileName", fh.Filename).Int64("Size", fh.Size).Logger()
	span.SetAttributes(attribute.String("var.file_name", fh.Filename), attribute.Int64("var.file_size", fh.Size))

	if fh.Size > maxUploadBytes {
		return fail(c, span, subLog, fiber.ErrRequestEntityTooLarge)
	}

	f, err := fh.Open()
	if err != nil {
		return fail(c, span, subLog, err)
	}
	defer f.Close()

	contents, err := io.ReadAll(f)
	if err != nil {
		return fail(c, span, subLog, err)
	}

	var data *risk.UploadData
	if strings.EqualFold(filepath.Ext(fh.Filename), ".json") {
		data, err = upload.ParseJSON(bytes.NewReader(contents))
	} else {
		data, err = upload.ParseXLSXBytes(contents)
	}
	if err != nil {
		return fail(c, span, subLog, err)
	}

	if validateOnly(c.Query("validate")) {
		return h.validate(c, span, data)
	}

	return h.calculate(ctx, c, span, subLog, data)
}

func (h *VarHandler) calculate(ctx context.Context, c *fiber.Ctx, span trace.Span, subLog zerolog.Logger, data *risk.UploadData) error {
	scale := h.Scale()

	key, cacheable := "", false
	if h.cache != nil {
		key, cacheable = resultKey(data, scale)
		if !cacheable {
			subLog.Warn().Msg("upload cannot be keyed; skipping result cache")
		}
	}

	if cacheable {
		if cached, ok, err := h.cache.Get(ctx, key); err == nil && ok {
			span.SetAttributes(attribute.Bool("var.cache_hit", true))
			c.Set("X-Cache", "HIT")
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Send(cached)
		}
	}

	results, err := risk.Calculate(data, scale)
	if err != nil {
		return fail(c, span, subLog, err)
	}

	span.SetAttributes(
		attribute.String("var.calculation_id", results.CalculationID),
		attribute.Float64("var.portfolio_var", results.PortfolioVar),
		attribute.Int("var.num_assets", len(results.AssetNames)),
	)

	body, err := json.Marshal(results)
	if err != nil {
		return fail(c, span, subLog, err)
	}

	if cacheable {
		if err := h.cache.Set(ctx, key, body); err != nil {
			subLog.Warn().Err(err).Msg("could not cache results")
		}
		c.Set("X-Cache", "MISS")
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(body)
}

func validateOnly(param string) bool {
	switch strings.ToLower(param) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

// resultKey addresses a calculation by its inputs. ok is false when the inputs
// cannot be serialized, e.g. a NaN price for an asset that is not held.
func resultKey(data *risk.UploadData, scale *risk.ScaleConfig) (key string, ok bool) {
	uploadJSON, err := json.Marshal(data)
	if err != nil {
		return "", false
	}
	scaleJSON, err := json.Marshal(scale)
	if err != nil {
		return "", false
	}
	return common.CacheKey([]byte("var"), uploadJSON, scaleJSON), true
}

// GetScale returns the active scale configuration
func (h *VarHandler) GetScale(c *fiber.Ctx) error {
	return c.JSON(h.Scale())
}

// PutScale validates and stores a new scale configuration. Nothing is persisted
// when the configuration is rejected.
func (h *VarHandler) PutScale(c *fiber.Ctx) error {
	ctx, span := startSpan(c, "var.scale.put")
	defer span.End()

	subLog := log.With().Str("Endpoint", "scale").Logger()

	sc := &risk.ScaleConfig{}
	if err := json.Unmarshal(c.Body(), sc); err != nil {
		return fail(c, span, subLog, &risk.ValidationError{Messages: []string{"could not decode scale configuration: " + err.Error()}})
	}

	if err := h.store.Save(ctx, sc); err != nil {
		return fail(c, span, subLog, err)
	}

	h.mu.Lock()
	h.scale = sc
	h.mu.Unlock()

	subLog.Info().Int("MatrixSize", sc.MatrixSize).Msg("scale config updated")
	return c.JSON(sc)
}
