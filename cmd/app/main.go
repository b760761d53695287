package main

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/snipstash/snipstash-back/internal/auth"
	"github.com/snipstash/snipstash-back/internal/config"
	"github.com/snipstash/snipstash-back/internal/db"
	"github.com/snipstash/snipstash-back/internal/service"
	"github.com/snipstash/snipstash-back/internal/transport"
)

func main() {
	app := fx.New(
		fx.Provide(
			config.NewConfig,
			newLogger,
			db.NewGormClient,
			auth.NewResolver,
			transport.NewHTTPServer,
		),
		service.Module,
		fx.Invoke(func(*transport.HTTPServer) {}),
	)

	app.Run()
}

func newLogger() (*zap.SugaredLogger, error) {
	l, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}
