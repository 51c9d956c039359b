package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"CineBot/bot"
	"CineBot/cache"
	"CineBot/config"
	"CineBot/core/conversation"
	"CineBot/core/download"
	"CineBot/core/jiocine"
	"CineBot/core/resolver"
	"CineBot/core/session"
	"CineBot/db"
	"CineBot/logger"
	"CineBot/repository"
	"CineBot/server"
	"CineBot/storage"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const janitorInterval = time.Minute

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "启动 Telegram 机器人",
	Long:  `启动 Telegram 机器人，可选启动状态服务（STATUS_ADDR）。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBot(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(botCmd)
}

func runBot(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg := loadConfig()

	if missing := cfg.Missing(); len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokens, err := newTokenStore(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DownloadDir, 0755); err != nil {
		return fmt.Errorf("创建下载目录失败: %w", err)
	}

	// 会话后端
	var backend session.Backend = session.NewMemoryBackend()
	if cfg.SessionBackend == "redis" {
		if err := cache.ConnectRedis(cfg); err != nil {
			return err
		}
		defer cache.CloseRedis()
		backend = cache.NewSessionCache(cache.RedisClient, cfg.SessionTTL)
		logger.Info("会话存储使用 Redis", logger.String("host", cfg.RedisHost))
	}
	store := session.NewStore(backend, cfg.SessionTTL)

	// 下载历史
	var history repository.DownloadRepository
	if cfg.DBEnabled {
		if err := db.ConnectGormDB(cfg); err != nil {
			return err
		}
		defer db.CloseGormDB()
		if err := db.AutoMigrate(); err != nil {
			return err
		}
		history = repository.NewGormDownloadRepository(db.GormDB)
	}

	// 超大产物归档
	var archiver download.Archiver
	if cfg.MinioEnabled {
		artifacts, err := storage.NewArtifactStore(ctx, cfg)
		if err != nil {
			return err
		}
		archiver = artifacts
	}

	client := newPlatformClient(cfg)
	pipeline := download.NewExecPipeline(cfg.YtdlpPath, cfg.FFmpegPath, cfg.DownloadDir)
	orchestrator := download.NewOrchestrator(pipeline, download.Options{
		MaxUploadSize: cfg.MaxUploadSize,
		Timeout:       cfg.PipelineTimeout,
		Archiver:      archiver,
	})

	manager := conversation.NewManager(conversation.Options{
		Resolver:         resolver.NewResolver(client, tokens),
		Manifests:        client,
		Runner:           orchestrator,
		Store:            store,
		Tokens:           tokens,
		History:          history,
		DomainMarker:     cfg.DomainMarker,
		ProgressInterval: cfg.ProgressInterval,
	})
	defer manager.Shutdown()

	tgBot, err := bot.New(cfg, manager)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return tgBot.Run(gctx)
	})
	g.Go(func() error {
		return tokens.Watch(gctx)
	})
	g.Go(func() error {
		store.Janitor(gctx, janitorInterval)
		return nil
	})
	if cfg.StatusAddr != "" {
		statusServer := server.New(cfg.StatusAddr, store, history)
		g.Go(func() error {
			return statusServer.Run(gctx)
		})
	}

	logger.Info("CineBot 已启动",
		logger.String("sessionBackend", cfg.SessionBackend),
		logger.Bool("history", cfg.DBEnabled),
		logger.Bool("archive", cfg.MinioEnabled))

	err = g.Wait()
	logger.Info("CineBot 正在退出")
	return err
}

func newPlatformClient(cfg *config.Config) *jiocine.Client {
	return jiocine.NewClient(jiocine.Options{
		ContentBaseURL:  cfg.ContentAPIURL,
		PlaybackBaseURL: cfg.PlaybackAPIURL,
		AuthBaseURL:     cfg.AuthAPIURL,
		Timeout:         cfg.HTTPTimeout,
	})
}

func newTokenStore(cfg *config.Config) (*config.TokenStore, error) {
	tokens, err := config.NewTokenStore(cfg.TokenFile, cfg.AuthToken)
	if err != nil {
		return nil, err
	}
	if tokens.Token() == "" {
		logger.Info("没有缓存的 token，首次请求时会申请 guest token")
	}
	return tokens, nil
}
