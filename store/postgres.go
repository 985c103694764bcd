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

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/penny-vault/pv-risk/risk"
	"github.com/rs/zerolog/log"
)

// PgxIface is the subset of a pgx connection or pool used by PgStore
type PgxIface interface {
	Begin(context.Context) (pgx.Tx, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

const (
	undefinedTable = "42P01"
	scaleConfigID  = 1

	createScaleConfigSQL = `CREATE TABLE IF NOT EXISTS var_scale_config (
	id INT PRIMARY KEY,
	matrix_size INT NOT NULL,
	volatility_thresholds DOUBLE PRECISION[] NOT NULL,
	value_thresholds DOUBLE PRECISION[] NOT NULL,
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
)`

	loadScaleConfigSQL = `SELECT matrix_size, volatility_thresholds, value_thresholds FROM var_scale_config WHERE id=$1`

	saveScaleConfigSQL = `INSERT INTO var_scale_config (id, matrix_size, volatility_thresholds, value_thresholds, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (id) DO UPDATE SET
	matrix_size = EXCLUDED.matrix_size,
	volatility_thresholds = EXCLUDED.volatility_thresholds,
	value_thresholds = EXCLUDED.value_thresholds,
	updated_at = EXCLUDED.updated_at`
)

// PgStore keeps the scale configuration in the var_scale_config table
type PgStore struct {
	pool PgxIface
}

func NewPgStore(pool PgxIface) *PgStore {
	return &PgStore{
		pool: pool,
	}
}

// ConnectPgStore opens a connection pool to databaseURL and verifies the server
// is reachable
func ConnectPgStore(ctx context.Context, databaseURL string) (*PgStore, error) {
	pool, err := pgxpool.Connect(ctx, databaseURL)
	if err != nil {
		log.Error().Stack().Err(err).Msg("could not connect to pool")
		return nil, err
	}
	if err = pool.Ping(ctx); err != nil {
		log.Error().Stack().Err(err).Msg("could not ping database server")
		pool.Close()
		return nil, err
	}
	return NewPgStore(pool), nil
}

// EnsureSchema creates the var_scale_config table if it does not exist
func (p *PgStore) EnsureSchema(ctx context.Context) error {
	trx, err := p.pool.Begin(ctx)
	if err != nil {
		log.Error().Stack().Err(err).Msg("could not create new transaction")
		return err
	}

	if _, err = trx.Exec(ctx, createScaleConfigSQL); err != nil {
		log.Error().Stack().Err(err).Msg("could not create var_scale_config table")
		if err := trx.Rollback(ctx); err != nil {
			log.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return err
	}

	if err = trx.Commit(ctx); err != nil {
		log.Error().Stack().Err(err).Msg("failed to commit changes")
		return err
	}

	return nil
}

// Load reads the stored scale configuration. The default configuration is
// returned when nothing has been saved yet.
func (p *PgStore) Load(ctx context.Context) (*risk.ScaleConfig, error) {
	sc := &risk.ScaleConfig{}
	err := p.pool.QueryRow(ctx, loadScaleConfigSQL, scaleConfigID).Scan(&sc.MatrixSize, &sc.VolatilityThresholds, &sc.ValueThresholds)
	if errors.Is(err, pgx.ErrNoRows) {
		log.Debug().Msg("no scale config saved; using defaults")
		return risk.DefaultScaleConfig(), nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
		log.Warn().Str("Table", "var_scale_config").Msg("scale config table does not exist; using defaults")
		return risk.DefaultScaleConfig(), nil
	}

	if err != nil {
		log.Error().Stack().Err(err).Str("Query", loadScaleConfigSQL).Msg("could not load scale config")
		return nil, err
	}

	if err := sc.Validate(); err != nil {
		log.Warn().Err(err).Msg("stored scale config is invalid")
		return nil, err
	}

	return sc, nil
}

// Save validates sc and upserts it
func (p *PgStore) Save(ctx context.Context, sc *risk.ScaleConfig) error {
	if err := sc.Validate(); err != nil {
		return err
	}

	trx, err := p.pool.Begin(ctx)
	if err != nil {
		log.Error().Stack().Err(err).Msg("could not create new transaction")
		return err
	}

	if _, err = trx.Exec(ctx, saveScaleConfigSQL, scaleConfigID, sc.MatrixSize, sc.VolatilityThresholds, sc.ValueThresholds); err != nil {
		log.Error().Stack().Err(err).Str("Query", saveScaleConfigSQL).Msg("could not save scale config")
		if err := trx.Rollback(ctx); err != nil {
			log.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return err
	}

	if err = trx.Commit(ctx); err != nil {
		log.Error().Stack().Err(err).Msg("failed to commit changes")
		return err
	}

	log.Info().Int("MatrixSize", sc.MatrixSize).Msg("saved scale config")
	return nil
}
