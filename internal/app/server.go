package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Fronut/Picture-management-website/internal/config"
	"github.com/Fronut/Picture-management-website/internal/core/ports"
	"github.com/Fronut/Picture-management-website/internal/handler"
	"github.com/Fronut/Picture-management-website/internal/usecase"
)

// runServer запускает HTTP сервер
func runServer(
	ctx context.Context,
	cfg *config.Config,
	imageUseCase usecase.ImageUseCase,
	tagUseCase usecase.TagUseCase,
	userStorage ports.UserStorage,
	logger *slog.Logger,
) error {
	imageHandler := handler.NewImageHandler(imageUseCase, tagUseCase, userStorage, cfg.MaxUploadSize, logger)

	r := chi.NewRouter()
	r.Use(handler.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Route("/api", func(r chi.Router) {
		r.Post("/users", imageHandler.RegisterUser)

		r.Route("/images", func(r chi.Router) {
			r.Post("/", imageHandler.UploadImages)
			r.Get("/search", imageHandler.SearchImages)
			r.Get("/highlights", imageHandler.GetHighlights)

			r.Route("/{imageID}", func(r chi.Router) {
				r.Get("/", imageHandler.GetImage)
				r.Delete("/", imageHandler.DeleteImage)
				r.Get("/content", imageHandler.GetImageContent)
				r.Get("/thumbnail/{size}", imageHandler.GetThumbnailContent)
				r.Post("/edit", imageHandler.EditImage)

				r.Route("/tags", func(r chi.Router) {
					r.Get("/", imageHandler.GetImageTags)
					r.Post("/", imageHandler.AssignCustomTags)
					r.Post("/ai", imageHandler.AssignAITags)
					r.Delete("/{tagID}", imageHandler.RemoveTag)
				})
			})
		})

		r.Get("/tags/popular", imageHandler.GetPopularTags)
	})

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	server := &http.Server{
		Addr:    serverAddr,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("ошибка при запуске сервера: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down http server")

	ctxServer, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxServer); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("http server stopped")
	return nil
}
