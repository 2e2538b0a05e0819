package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vsinha/labledger/pkg/interfaces/rest"
)

const shutdownTimeout = 10 * time.Second

// ServeCommand runs the HTTP API until ctx is cancelled
type ServeCommand struct {
	runtime *Runtime
}

func NewServeCommand(runtime *Runtime) *ServeCommand {
	return &ServeCommand{runtime: runtime}
}

// Execute starts the server and shuts it down gracefully when ctx ends
func (c *ServeCommand) Execute(ctx context.Context) error {
	rt := c.runtime
	gin.SetMode(rt.Config.Server.GinMode)

	handler := rest.NewHandler(rt.Service, rt.Logger)
	server := &http.Server{
		Addr:              ":" + rt.Config.Server.Port,
		Handler:           rest.NewRouter(handler, rt.Collector, rt.Logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		rt.Logger.Info("starting API server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("API server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	rt.Logger.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("API server shutdown error: %w", err)
	}
	return nil
}
