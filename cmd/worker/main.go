package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/communityvault/backend/internal/app"
)

// Runs only the new-content broadcast worker. Useful for scaling
// fan-out independently of the API.
func main() {
	application, err := app.New()
	if err != nil {
		fmt.Printf("failed to initialize app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	if application.Services.BroadcastQueue == nil {
		fmt.Println("REDIS_ADDR not set; nothing to consume")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application.Services.BroadcastQueue.Start(ctx, application.Cfg.BroadcastWorkers, application.Services.Notification.BroadcastNewContent)
	application.Log.Info("Broadcast worker running")

	<-ctx.Done()
	application.Log.Info("Broadcast worker shutting down")
}
