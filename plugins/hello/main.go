package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/example/pluginhost/internal/logging"
	"github.com/example/pluginhost/pkg/grpc"
	"github.com/example/pluginhost/pkg/operator"
)

func main() {
	port := flag.Int("port", 50051, "The server port")
	flag.Parse()

	reg := operator.NewRegistry()
	if err := reg.Register(SayHello{}); err != nil {
		log.Fatalf("failed to register operator: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := logging.New(slog.LevelInfo)
	if err := grpc.ListenAndServe(ctx, *port, reg, logger); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
