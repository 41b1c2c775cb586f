package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"dealbreaker/internal/cache"
	"dealbreaker/internal/config"
	"dealbreaker/internal/room"
	"dealbreaker/internal/server"
)

func main() {
	cfg := config.Load()

	log := logrus.New()
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	var history *cache.Publisher
	if cfg.RedisAddr != "" {
		history = cache.NewPublisher(cfg.RedisAddr)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := history.Ping(ctx); err != nil {
			log.WithError(err).Warn("redis unreachable, action history disabled")
			history = nil
		}
		cancel()
		if history != nil {
			defer history.Close()
		}
	}

	registry := room.NewRegistry(time.Duration(cfg.TurnTimerSec)*time.Second, history, log)
	srv := server.New(registry, log)
	registry.SetBroadcaster(srv)

	log.WithField("addr", cfg.HTTPAddr).Info("server listening")
	if err := srv.Router().Run(cfg.HTTPAddr); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}
