package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/fimi-watch/archive-worker/internal/api"
	"github.com/fimi-watch/archive-worker/internal/config"
)

func main() {
	jc := config.ReadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := api.Start(ctx, jc.GetString("listen_address", ":8080"), jc); err != nil {
		logrus.Fatal(err)
	}
}
