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

package router

import (
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/spf13/viper"

	"github.com/penny-vault/pv-risk/common"
	"github.com/penny-vault/pv-risk/handler"
	"github.com/penny-vault/pv-risk/middleware"
)

// NewApp creates the fiber application with CORS, request logging and every
// route registered
func NewApp(varHandler *handler.VarHandler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               common.ProgramName,
		BodyLimit:             64 << 20,
		DisableStartupMessage: true,
		JSONEncoder:           json.Marshal,
	})

	origins := viper.GetString("server.cors_origins")
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "*",
		AllowMethods: "GET,POST,HEAD,PUT",
	}))

	app.Use(middleware.NewLogger())

	SetupRoutes(app, varHandler)
	return app
}

// SetupRoutes setup router api
func SetupRoutes(app *fiber.App, varHandler *handler.VarHandler) {
	api := app.Group("/v1")
	api.Get("/", handler.Ping)

	// VaR
	v := api.Group("/var")
	v.Post("/validate", varHandler.Validate)
	v.Post("/calculate", varHandler.Calculate)
	v.Post("/upload", varHandler.Upload)

	// Scale configuration
	v.Get("/scale", varHandler.GetScale)
	v.Put("/scale", varHandler.PutScale)
}
