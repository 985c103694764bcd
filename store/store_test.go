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

package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pashagolub/pgxmock"
	"github.com/spf13/viper"

	"github.com/penny-vault/pv-risk/risk"
	"github.com/penny-vault/pv-risk/store"
)

var descending = &risk.ScaleConfig{
	MatrixSize:           5,
	VolatilityThresholds: []float64{20, 15, 10, 5},
	ValueThresholds:      []float64{100, 500, 1000, 5000},
}

var _ = Describe("FileStore", func() {
	var (
		dir string
		fs  *store.FileStore
		ctx context.Context
	)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "pvrisk-store")
		Expect(err).To(BeNil())
		DeferCleanup(os.RemoveAll, dir)

		fs = store.NewFileStore(filepath.Join(dir, "conf", "scale.toml"))
		ctx = context.Background()
	})

	It("returns the defaults when nothing is saved", func() {
		sc, err := fs.Load(ctx)
		Expect(err).To(BeNil())
		Expect(sc).To(Equal(risk.DefaultScaleConfig()))
	})

	It("round trips a configuration", func() {
		sc, err := risk.NewScaleConfig(6, []float64{2, 4, 8, 16, 32}, []float64{10, 50, 100, 500, 1000})
		Expect(err).To(BeNil())
		Expect(fs.Save(ctx, sc)).To(Succeed())

		loaded, err := fs.Load(ctx)
		Expect(err).To(BeNil())
		Expect(loaded).To(Equal(sc))
	})

	It("writes TOML", func() {
		Expect(fs.Save(ctx, risk.DefaultScaleConfig())).To(Succeed())
		contents, err := os.ReadFile(fs.Path())
		Expect(err).To(BeNil())
		Expect(string(contents)).To(ContainSubstring("matrix_size = 5"))
		Expect(string(contents)).To(ContainSubstring("volatility_thresholds"))
	})

	It("refuses to save descending thresholds", func() {
		err := fs.Save(ctx, descending)
		Expect(err).To(MatchError(risk.ErrValidation))
		Expect(err.Error()).To(ContainSubstring("must be in ascending order"))

		_, statErr := os.Stat(fs.Path())
		Expect(errors.Is(statErr, os.ErrNotExist)).To(BeTrue())
	})

	It("keeps the previous configuration when a save is rejected", func() {
		Expect(fs.Save(ctx, risk.DefaultScaleConfig())).To(Succeed())
		Expect(fs.Save(ctx, descending)).ToNot(Succeed())

		sc, err := fs.Load(ctx)
		Expect(err).To(BeNil())
		Expect(sc).To(Equal(risk.DefaultScaleConfig()))
	})

	It("rejects an invalid file", func() {
		Expect(os.MkdirAll(filepath.Dir(fs.Path()), 0o755)).To(Succeed())
		Expect(os.WriteFile(fs.Path(), []byte("matrix_size = 7\nvolatility_thresholds = [1, 2]\nvalue_thresholds = [1, 2]\n"), 0o600)).To(Succeed())
		_, err := fs.Load(ctx)
		Expect(err).To(MatchError(risk.ErrValidation))
	})

	It("loads integer thresholds", func() {
		Expect(os.MkdirAll(filepath.Dir(fs.Path()), 0o755)).To(Succeed())
		Expect(os.WriteFile(fs.Path(), []byte("matrix_size = 5\nvolatility_thresholds = [5, 10, 15.5, 20]\nvalue_thresholds = [100, 500, 1000, 5000]\n"), 0o600)).To(Succeed())

		sc, err := fs.Load(ctx)
		Expect(err).To(BeNil())
		Expect(sc.MatrixSize).To(Equal(5))
		Expect(sc.VolatilityThresholds).To(Equal([]float64{5, 10, 15.5, 20}))
		Expect(sc.ValueThresholds).To(Equal([]float64{100, 500, 1000, 5000}))
	})

	It("rejects thresholds that are not numbers", func() {
		Expect(os.MkdirAll(filepath.Dir(fs.Path()), 0o755)).To(Succeed())
		Expect(os.WriteFile(fs.Path(), []byte("matrix_size = 5\nvolatility_thresholds = [5, \"ten\", 15, 20]\nvalue_thresholds = [100, 500, 1000, 5000]\n"), 0o600)).To(Succeed())

		_, err := fs.Load(ctx)
		Expect(err).To(MatchError(risk.ErrValidation))
		Expect(err.Error()).To(ContainSubstring("volatility_thresholds[1] must be a number, got ten"))
	})

	It("rejects a malformed file", func() {
		Expect(os.MkdirAll(filepath.Dir(fs.Path()), 0o755)).To(Succeed())
		Expect(os.WriteFile(fs.Path(), []byte("matrix_size = = 5"), 0o600)).To(Succeed())
		_, err := fs.Load(ctx)
		Expect(err).ToNot(BeNil())
	})
})

var _ = Describe("PgStore", func() {
	var (
		dbPool pgxmock.PgxConnIface
		pg     *store.PgStore
		ctx    context.Context
	)

	BeforeEach(func() {
		var err error
		dbPool, err = pgxmock.NewConn()
		Expect(err).To(BeNil())
		pg = store.NewPgStore(dbPool)
		ctx = context.Background()
	})

	It("loads the saved configuration", func() {
		dbPool.ExpectQuery("SELECT matrix_size, volatility_thresholds, value_thresholds FROM var_scale_config").
			WithArgs(1).
			WillReturnRows(pgxmock.NewRows([]string{"matrix_size", "volatility_thresholds", "value_thresholds"}).
				AddRow(5, []float64{1, 2, 3, 4}, []float64{10, 20, 30, 40}))

		sc, err := pg.Load(ctx)
		Expect(err).To(BeNil())
		Expect(sc.MatrixSize).To(Equal(5))
		Expect(sc.VolatilityThresholds).To(Equal([]float64{1, 2, 3, 4}))
		Expect(sc.ValueThresholds).To(Equal([]float64{10, 20, 30, 40}))
		Expect(dbPool.ExpectationsWereMet()).To(Succeed())
	})

	It("returns the defaults when no row exists", func() {
		dbPool.ExpectQuery("SELECT matrix_size").WithArgs(1).WillReturnError(pgx.ErrNoRows)

		sc, err := pg.Load(ctx)
		Expect(err).To(BeNil())
		Expect(sc).To(Equal(risk.DefaultScaleConfig()))
	})

	It("returns the defaults when the table does not exist", func() {
		dbPool.ExpectQuery("SELECT matrix_size").WithArgs(1).WillReturnError(&pgconn.PgError{Code: "42P01"})

		sc, err := pg.Load(ctx)
		Expect(err).To(BeNil())
		Expect(sc).To(Equal(risk.DefaultScaleConfig()))
	})

	It("passes through other database errors", func() {
		dbPool.ExpectQuery("SELECT matrix_size").WithArgs(1).WillReturnError(errors.New("connection reset"))

		_, err := pg.Load(ctx)
		Expect(err).To(MatchError("connection reset"))
	})

	It("upserts the configuration", func() {
		sc := risk.DefaultScaleConfig()
		dbPool.ExpectBegin()
		dbPool.ExpectExec("INSERT INTO var_scale_config").
			WithArgs(1, 5, sc.VolatilityThresholds, sc.ValueThresholds).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		dbPool.ExpectCommit()

		Expect(pg.Save(ctx, sc)).To(Succeed())
		Expect(dbPool.ExpectationsWereMet()).To(Succeed())
	})

	It("rolls back when the upsert fails", func() {
		dbPool.ExpectBegin()
		dbPool.ExpectExec("INSERT INTO var_scale_config").WillReturnError(errors.New("disk full"))
		dbPool.ExpectRollback()

		Expect(pg.Save(ctx, risk.DefaultScaleConfig())).To(MatchError("disk full"))
		Expect(dbPool.ExpectationsWereMet()).To(Succeed())
	})

	It("does not touch the database when thresholds are descending", func() {
		err := pg.Save(ctx, descending)
		Expect(err).To(MatchError(risk.ErrValidation))
		Expect(err.Error()).To(ContainSubstring("must be in ascending order"))
		Expect(dbPool.ExpectationsWereMet()).To(Succeed())
	})

	It("creates the schema", func() {
		dbPool.ExpectBegin()
		dbPool.ExpectExec("CREATE TABLE IF NOT EXISTS var_scale_config").WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
		dbPool.ExpectCommit()

		Expect(pg.EnsureSchema(ctx)).To(Succeed())
		Expect(dbPool.ExpectationsWereMet()).To(Succeed())
	})
})

var _ = Describe("FromConfig", func() {
	AfterEach(func() {
		viper.Reset()
	})

	It("creates a file store by default", func() {
		viper.Set("scale.path", "/tmp/pvrisk-scale.toml")
		s, err := store.FromConfig(context.Background())
		Expect(err).To(BeNil())
		Expect(s).To(BeAssignableToTypeOf(&store.FileStore{}))
	})

	It("rejects unknown stores", func() {
		viper.Set("scale.store", "s3")
		_, err := store.FromConfig(context.Background())
		Expect(err).To(MatchError(store.ErrUnknownStore))
	})
})
