package main

import (
	"os"

	"github.com/yigit/coursereg/internal/pkg/logger"
	"github.com/yigit/coursereg/internal/server"
)

// @title Course Registration API
// @version 1.0
// @description Student and admin course registration service
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@coursereg.app

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:4000
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token for authorization, prefixed with "Bearer "

func main() {
	srv, err := server.NewServer()
	if err != nil {
		// the package logger is usable before config is loaded
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
