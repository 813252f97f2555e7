package main

import (
	"Ripple/internal/app/config"
	"Ripple/internal/pkg/cron"
	"Ripple/internal/pkg/database"
	"Ripple/internal/pkg/logger"
	"Ripple/internal/pkg/security"
	"Ripple/internal/wire"
	"context"
	"errors"
	log "log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
)

func main() {
	// 加载配置
	if err := config.LoadConfig(); err != nil {
		log.Error("Fatal error: failed to load configuration", "err", err)
		panic(err)
	}
	cfg := config.Cfg

	// 初始化日志
	logger.InitLogger()

	// 本地缓存库
	storageCfg := cfg.Storage
	db, err := database.NewGormDB(&storageCfg)
	if err != nil {
		log.Error("Fatal error: failed to open local database", "err", err)
		panic(err)
	}

	// 依赖注入（定位能力由移动端宿主注入，此处无）
	app, err := wire.BuildApplication(db, cfg, nil)
	if err != nil {
		log.Error("Fatal error: failed to create application", "err", err)
		panic(err)
	}

	// 读取登录凭证，缺失或过期交由外层重新登录
	token, err := app.Credentials.AuthToken()
	if err != nil || token == "" {
		log.Error("未找到登录凭证，请先登录", "err", err)
		os.Exit(1)
	}
	claims, err := security.EnsureUsable(token)
	if err != nil {
		log.Error("登录凭证不可用，请重新登录", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	// 建立长连接，登录期间保持
	if err = app.Transport.Connect(ctx, token); err != nil {
		log.Error("Fatal error: failed to establish transport connection", "err", err)
		panic(err)
	}
	log.Info("客户端就绪", "userID", claims.UserID)

	// 定时任务
	err = cron.InitCron(app.CronMgr)
	if err != nil {
		log.Error("Fatal error: failed to start cron jobs", "err", err)
		panic(err)
	}
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Cron Jobs stopping...")
		app.CronMgr.Stop()
		return nil
	})

	// 优雅退出：登出即断开长连接
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig := <-quit:
			log.Info("Received signal, shutting down...", "signal", sig)
			cancel()
		}

		app.Transport.Disconnect()
		return nil
	})

	if err = g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("App exited with error", "err", err)
	}
	log.Info("App exited successfully.")
}
