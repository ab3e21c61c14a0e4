package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/itsloashh/yards-app/internal/config"
	"github.com/itsloashh/yards-app/internal/yards"
	"github.com/itsloashh/yards-app/internal/yards/metrics"
)

type application struct {
	errorLog *log.Logger
	infoLog  *log.Logger
	logger   *zap.SugaredLogger
	metrics  *metrics.Manager
	yards    *yards.YardsDeps
}

func initializeApp(cfg config.Config, zl *zap.Logger, rdb *redis.Client, yardsCfg yards.YardsConfig) *application {
	sugar := zl.Sugar()
	m := metrics.NewManager("yards")

	errorLog, err := zap.NewStdLogAt(zl, zap.ErrorLevel)
	if err != nil {
		errorLog = zap.NewStdLog(zl)
	}

	return &application{
		errorLog: errorLog,
		infoLog:  zap.NewStdLog(zl),
		logger:   sugar,
		metrics:  m,
		yards: &yards.YardsDeps{
			RDB:        rdb,
			Logger:     sugar,
			Config:     yardsCfg,
			HTTPClient: &http.Client{Timeout: 15 * time.Second},
			Metrics:    m,
		},
	}
}

// openRedis returns nil without error when no address is configured.
func openRedis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	if cfg.Redis.Addr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func addSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Cross-Origin-Resource-Policy", "same-site")
		next.ServeHTTP(w, r)
	})
}
