package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"WProject/global"
	"WProject/logger"
	jobsapi "WProject/module/jobs"
	wsapi "WProject/module/workspace"
	jobsvc "WProject/service/jobs"
	"WProject/service/realtime"
	"WProject/service/realtime/handlers"
	"WProject/service/store"
	"WProject/tools/safe"
	"WProject/tools/security"
)

func main() {
	cfg := global.Load()
	global.ConfigIds(cfg.NodeID)
	auth := security.DefaultOptions(cfg.JwtSecret())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bridge, err := realtime.NewBridge(realtime.BridgeConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Origin:   cfg.GatewayID(),
	})
	if err != nil {
		logger.Errorf("[boot] redis bridge: %v", err)
		os.Exit(1)
	}
	if err := bridge.Start(ctx); err != nil {
		logger.Errorf("[boot] bridge subscribe: %v", err)
		os.Exit(1)
	}

	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Errorf("[boot] postgres: %v", err)
		os.Exit(1)
	}
	workspaces := store.NewWorkspaceStore(db)
	collaborators := store.NewCollaboratorStore(db)
	jobStore := store.NewJobStore(db)

	queue, err := jobsvc.NewQueue(cfg.NatsURL, jobStore)
	if err != nil {
		logger.Errorf("[boot] nats: %v", err)
		os.Exit(1)
	}
	jobsvc.RegisterDefaults(queue)
	if err := queue.StartWorker(ctx); err != nil {
		logger.Errorf("[boot] job worker: %v", err)
		os.Exit(1)
	}

	server := realtime.NewServer(realtime.Config{
		GatewayID: cfg.GatewayID(),
		Auth:      auth,
		Bus:       bridge,
	})
	handlers.Register(server)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/realtime", server.HandleWS)

	api := r.Group("/api")
	wsapi.NewHandler(workspaces, collaborators).RegisterRoutes(api, auth)
	jobsapi.NewHandler(jobStore, queue).RegisterRoutes(api, auth)

	httpSrv := &http.Server{Addr: cfg.GatewayAddr, Handler: r}
	safe.Go(func() {
		logger.Infof("[boot] gateway %s listening on %s", cfg.GatewayID(), cfg.GatewayAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("[boot] listen: %v", err)
		}
	})

	<-ctx.Done()
	logger.Info("[boot] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	queue.Close()
	_ = bridge.Close()
	db.Close()
}
