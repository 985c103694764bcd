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

// Package store persists the risk matrix scale configuration
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/penny-vault/pv-risk/risk"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

var (
	ErrUnknownStore = errors.New("unknown scale store")
)

const (
	KindFile     = "file"
	KindPostgres = "postgres"
)

// ScaleStore loads and saves the scale configuration used to map VaR results
// onto the risk matrix. Save must validate the configuration before it touches
// the underlying storage.
type ScaleStore interface {
	Load(ctx context.Context) (*risk.ScaleConfig, error)
	Save(ctx context.Context, sc *risk.ScaleConfig) error
}

// FromConfig creates the store selected by the scale.store configuration key
func FromConfig(ctx context.Context) (ScaleStore, error) {
	kind := viper.GetString("scale.store")
	switch kind {
	case KindFile, "":
		return NewFileStore(viper.GetString("scale.path")), nil
	case KindPostgres:
		pgStore, err := ConnectPgStore(ctx, viper.GetString("database.url"))
		if err != nil {
			return nil, err
		}
		if err := pgStore.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return pgStore, nil
	default:
		log.Error().Str("Kind", kind).Msg("unknown scale store")
		return nil, fmt.Errorf("%w: %s", ErrUnknownStore, kind)
	}
}
