package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/vitanova-team/prayer-counter-backend/api"
	"github.com/vitanova-team/prayer-counter-backend/internal/platform/config"
	"github.com/vitanova-team/prayer-counter-backend/internal/platform/database"
	"github.com/vitanova-team/prayer-counter-backend/internal/platform/health"
	"github.com/vitanova-team/prayer-counter-backend/internal/platform/shutdown"
	"github.com/vitanova-team/prayer-counter-backend/internal/platform/startup"
	"github.com/vitanova-team/prayer-counter-backend/internal/prayer"
	"github.com/vitanova-team/prayer-counter-backend/internal/realtime"
	"github.com/vitanova-team/prayer-counter-backend/pkg/lifecycle"
	"github.com/vitanova-team/prayer-counter-backend/pkg/token"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("无法加载配置: %v", err))
	}
	gin.SetMode(cfg.Server.Mode)

	token.GenerateSecretKey()
	database.InitDB(cfg.Database)
	database.InitRedis(cfg.Database.Redis)

	// 1. 阻塞式获取初始Run ID
	health.InitializeRunID()

	// 2. 执行应用首次启动初始化流程（建表、引导数据、缓存预热）
	if err := startup.InitializeApplication(cfg); err != nil {
		panic(fmt.Sprintf("应用初始化失败，无法启动: %v", err))
	}
	prayer.InitializeEngine(prayer.NewRedisNotifier(), cfg.App.CooldownSeconds)

	// 3. 阻塞式执行一次启动后健康检查
	fmt.Println("正在执行启动后健康检查...")
	health.PerformCheck()

	// 4. 启动后台服务，每个服务各持有一个生命周期句柄
	gracefulMgr := lifecycle.NewManager()
	forcefulMgr := lifecycle.NewManager()

	healthHandle, err := gracefulMgr.NewServiceHandle("redis-health-checker")
	if err != nil {
		panic(err)
	}
	health.StartRedisHealthCheck(healthHandle)

	sweeperHandle, err := gracefulMgr.NewServiceHandle("cooldown-sweeper")
	if err != nil {
		panic(err)
	}
	prayer.StartCooldownSweeper(sweeperHandle)

	broadcastHandle, err := gracefulMgr.NewServiceHandle("realtime-broadcaster")
	if err != nil {
		panic(err)
	}
	realtime.StartBroadcaster(broadcastHandle)

	// 5. 装配HTTP层
	r := gin.Default()
	allowedOrigins := cfg.Server.Cors.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api.SetupRoutes(r)

	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}

	go func() {
		fmt.Printf("服务器已准备就绪，开始监听 %s\n", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic("Failed to start server: " + err.Error())
		}
	}()

	// 6. 阻塞等待停机信号，协调两阶段优雅退出
	coordinator := shutdown.NewCoordinator(gracefulMgr, forcefulMgr)
	coordinator.ListenForSignalsAndShutdown(server)
}
