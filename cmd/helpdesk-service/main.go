package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"helpdesk-service/internal/auth"
	"helpdesk-service/internal/client"
	"helpdesk-service/internal/config"
	"helpdesk-service/internal/db"
	httphandler "helpdesk-service/internal/http"
	"helpdesk-service/internal/http/middleware"
	"helpdesk-service/internal/logger"
	"helpdesk-service/internal/repository"
	"helpdesk-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.Environment)

	database, err := db.New(cfg, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect database")
	}

	userRepo := repository.NewUserRepository(database)
	categoryRepo := repository.NewCategoryRepository(database)
	ticketRepo := repository.NewTicketRepository(database)
	commentRepo := repository.NewCommentRepository(database)
	noteRepo := repository.NewInternalNoteRepository(database)
	feedbackRepo := repository.NewFeedbackRepository(database)
	attachmentRepo := repository.NewAttachmentRepository(database)

	notifier := client.NewNotifierClient(cfg)

	ticketService := service.NewTicketService(
		ticketRepo, categoryRepo, userRepo, commentRepo, noteRepo,
		feedbackRepo, attachmentRepo, notifier, appLogger,
	)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	reportService := service.NewReportService(ticketRepo, commentRepo, rng)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	tokenIssuer := auth.NewIssuer(cfg.Auth.AccessSecret, cfg.Auth.AccessTTL)
	userService := service.NewUserService(userRepo, tokenIssuer)
	categoryService := service.NewCategoryService(categoryRepo, userRepo)

	handler := httphandler.NewHandler(ticketService, reportService, userService, categoryService, appLogger)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	appLogger.Info().Str("addr", addr).Msg("starting helpdesk service")

	if err := router.Run(addr); err != nil {
		appLogger.Error().Err(err).Msg("failed to start server")
		os.Exit(1)
	}
}
