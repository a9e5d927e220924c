package main

import (
	"context"
	"log"
	"os"

	"video2audio/internal/config"
	"video2audio/internal/daemonrun"
)

// video2audiod runs the daemon in the foreground with the default config
// search path. Service managers use it instead of `video2audio daemon`.
func main() {
	cfg, _, _, err := config.Load(os.Getenv("VIDEO2AUDIO_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{
		LogLevel: os.Getenv("VIDEO2AUDIO_LOG_LEVEL"),
	}); err != nil {
		log.Fatalf("daemon: %v", err)
	}
}
