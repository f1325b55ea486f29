package logging

import (
	"log/slog"
	"os"
)

// Logger is usable before Init; Init only swaps the handler.
var Logger = slog.New(slog.NewTextHandler(os.Stdout, nil))

// Init picks JSON output for prod and text output everywhere else.
func Init(appEnv string) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if appEnv == "prod" {
		Logger = slog.New(slog.NewJSONHandler(os.Stdout, opts))
	} else {
		opts.Level = slog.LevelDebug
		Logger = slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	slog.SetDefault(Logger)
}

func Component(name string) *slog.Logger {
	return Logger.With("component", name)
}
