package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Trqquocc/Schedule-With-AI-sub000/internal/ai"
	"github.com/Trqquocc/Schedule-With-AI-sub000/internal/bot"
	"github.com/Trqquocc/Schedule-With-AI-sub000/internal/cache"
	"github.com/Trqquocc/Schedule-With-AI-sub000/internal/config"
	"github.com/Trqquocc/Schedule-With-AI-sub000/internal/planner"
	"github.com/Trqquocc/Schedule-With-AI-sub000/internal/repository"
	"github.com/Trqquocc/Schedule-With-AI-sub000/internal/server"
	"github.com/Trqquocc/Schedule-With-AI-sub000/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(".")
	if err != nil {
		panic("load config: " + err.Error())
	}

	log, err := config.NewLogger(cfg.Environment)
	if err != nil {
		panic("init logger: " + err.Error())
	}
	defer log.Sync()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatalw("service stopped", "error", err)
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.SugaredLogger) error {
	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	eventRepo := repository.NewEventRepository(db)
	suggestionRepo := repository.NewSuggestionRepository(db)

	var idem cache.IdempotencyCache
	var memCache *cache.MemoryCache
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		idem = redisCache
		log.Infow("using redis idempotency cache", "addr", cfg.RedisAddr)
	} else {
		memCache = cache.NewMemoryCache()
		idem = memCache
		log.Infow("using in-memory idempotency cache")
	}

	var aiClient *ai.Client
	if cfg.AIAPIKey != "" {
		aiClient, err = ai.NewClient(cfg.AIAPIKey, cfg.AIEndpoint, cfg.AIModel)
		if err != nil {
			return err
		}
		log.Infow("ai client ready", "model", cfg.AIModel)
	} else {
		log.Infow("no AI_API_KEY, running in simulation mode")
	}

	suggester := ai.NewSuggester(aiClient, planner.New(log), log)
	plans := service.NewPlanService(taskRepo, eventRepo, suggestionRepo, suggester, idem, cfg.IdempotencyWindow(), log)

	crons := service.NewCronService(time.Local)
	if memCache != nil {
		if _, err := crons.ScheduleInterval(10*time.Minute, func() {
			memCache.Cleanup()
		}); err != nil {
			return err
		}
	}
	suggestionTTL := time.Duration(cfg.SuggestionTTLDays) * 24 * time.Hour
	if _, err := crons.ScheduleDaily("03:30", func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := plans.PurgeStaleSuggestions(jobCtx, suggestionTTL); err != nil {
			log.Warnw("purge stale suggestions", "error", err)
		}
	}); err != nil {
		return err
	}
	crons.Start()
	defer crons.Stop()

	if cfg.TelegramToken != "" {
		tgBot, err := bot.New(cfg.TelegramToken, userRepo, taskRepo, plans, log)
		if err != nil {
			return err
		}
		go func() {
			if err := tgBot.Start(ctx); err != nil {
				log.Errorw("bot stopped", "error", err)
			}
		}()
	} else {
		log.Infow("no TELEGRAM_TOKEN, bot disabled")
	}

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: server.New(cfg, userRepo, plans, log).Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("http server listening", "port", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
