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

package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/penny-vault/pv-risk/risk"
	"github.com/rs/zerolog/log"
)

// FileStore keeps the scale configuration in a TOML file
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: path,
	}
}

// Path of the backing TOML file
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the scale configuration. The default configuration is returned when
// the file does not exist.
func (f *FileStore) Load(ctx context.Context) (*risk.ScaleConfig, error) {
	subLog := log.With().Str("Path", f.path).Logger()

	contents, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		subLog.Debug().Msg("scale config file does not exist; using defaults")
		return risk.DefaultScaleConfig(), nil
	}
	if err != nil {
		subLog.Error().Stack().Err(err).Msg("could not read scale config file")
		return nil, err
	}

	var raw scaleFile
	if err := toml.Unmarshal(contents, &raw); err != nil {
		subLog.Error().Stack().Err(err).Msg("could not parse scale config file")
		return nil, fmt.Errorf("parse %s: %w", f.path, err)
	}

	sc, err := raw.scaleConfig()
	if err != nil {
		subLog.Warn().Err(err).Msg("stored scale config is invalid")
		return nil, err
	}

	if err := sc.Validate(); err != nil {
		subLog.Warn().Err(err).Msg("stored scale config is invalid")
		return nil, err
	}

	return sc, nil
}

// scaleFile mirrors risk.ScaleConfig with untyped thresholds so that TOML
// integers such as `[5, 10, 15, 20]` are accepted alongside floats
type scaleFile struct {
	MatrixSize           int           `toml:"matrix_size"`
	VolatilityThresholds []interface{} `toml:"volatility_thresholds"`
	ValueThresholds      []interface{} `toml:"value_thresholds"`
}

func (raw scaleFile) scaleConfig() (*risk.ScaleConfig, error) {
	msgs := make([]string, 0)
	vol := thresholds("volatility_thresholds", raw.VolatilityThresholds, &msgs)
	val := thresholds("value_thresholds", raw.ValueThresholds, &msgs)
	if len(msgs) > 0 {
		return nil, &risk.ValidationError{Messages: msgs}
	}

	return &risk.ScaleConfig{
		MatrixSize:           raw.MatrixSize,
		VolatilityThresholds: vol,
		ValueThresholds:      val,
	}, nil
}

func thresholds(key string, vals []interface{}, msgs *[]string) []float64 {
	if vals == nil {
		return nil
	}

	res := make([]float64, len(vals))
	for idx, v := range vals {
		switch num := v.(type) {
		case int64:
			res[idx] = float64(num)
		case float64:
			res[idx] = num
		default:
			*msgs = append(*msgs, fmt.Sprintf("%s[%d] must be a number, got %v", key, idx, v))
		}
	}
	return res
}

// Save validates sc and then writes it to the backing file. The file is replaced
// atomically.
func (f *FileStore) Save(ctx context.Context, sc *risk.ScaleConfig) error {
	if err := sc.Validate(); err != nil {
		return err
	}

	subLog := log.With().Str("Path", f.path).Logger()

	contents, err := toml.Marshal(sc)
	if err != nil {
		subLog.Error().Stack().Err(err).Msg("could not serialize scale config")
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		subLog.Error().Stack().Err(err).Msg("could not create scale config directory")
		return err
	}

	tmp, err := os.CreateTemp(dir, ".scale-*.toml")
	if err != nil {
		subLog.Error().Stack().Err(err).Msg("could not create temporary file")
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(contents); err != nil {
		tmp.Close()
		subLog.Error().Stack().Err(err).Msg("could not write scale config")
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmp.Name(), f.path); err != nil {
		subLog.Error().Stack().Err(err).Msg("could not replace scale config file")
		return err
	}

	subLog.Info().Int("MatrixSize", sc.MatrixSize).Msg("saved scale config")
	return nil
}
