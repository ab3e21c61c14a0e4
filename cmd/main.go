package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/itsloashh/yards-app/internal/config"
	"github.com/itsloashh/yards-app/internal/logger"
	"github.com/itsloashh/yards-app/internal/yards"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "Path to YAML config file")
	addr := flag.String("addr", "", "HTTP network address")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Address = *addr
	}

	zl := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	defer zl.Sync()
	sugar := zl.Sugar()

	yardsCfg, err := yards.LoadYardsConfig()
	if err != nil {
		sugar.Fatalf("load yards config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := openRedis(ctx, cfg)
	if err != nil {
		sugar.Warnf("redis unavailable, place cache disabled: %v", err)
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	app := initializeApp(cfg, zl, rdb, yardsCfg)

	handler, err := app.routes()
	if err != nil {
		sugar.Fatalf("register routes: %v", err)
	}
	if err := yards.StartYardsWorkers(ctx, app.yards); err != nil {
		sugar.Fatalf("start yards workers: %v", err)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowCredentials: true,
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		ErrorLog:     app.errorLog,
		Handler:      addSecurityHeaders(c.Handler(handler)),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			sugar.Errorf("shutdown: %v", err)
		}
	}()

	app.infoLog.Printf("Starting server on %s", cfg.Server.Address)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		sugar.Fatal(err)
	}
	sugar.Info("server stopped")
}
