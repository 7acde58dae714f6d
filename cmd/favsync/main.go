package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/liubaotong/favsync/internal/cli"
	"github.com/liubaotong/favsync/internal/favorites"
)

func loadConfig() cli.Config {
	_ = godotenv.Load()

	pageSize, err := strconv.Atoi(envOrDefault("FAVSYNC_PAGE_SIZE", strconv.Itoa(favorites.DefaultPageSize)))
	if err != nil || !favorites.ValidPageSize(pageSize) {
		pageSize = favorites.DefaultPageSize
	}

	return cli.Config{
		ServerURL:       os.Getenv("FAVSYNC_SERVER_URL"),
		SettingsDir:     envOrDefault("FAVSYNC_SETTINGS_DIR", defaultSettingsDir()),
		SettingsBackend: envOrDefault("FAVSYNC_SETTINGS_BACKEND", "file"),
		PageSize:        pageSize,
		LogLevel:        envOrDefault("FAVSYNC_LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("FAVSYNC_LOG_FORMAT", "text"),
		LogFile:         os.Getenv("FAVSYNC_LOG_FILE"),
		DBPath:          envOrDefault("FAVSYNC_DB", "favsync.db"),
		Addr:            ":" + envOrDefault("PORT", "3000"),
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func defaultSettingsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".favsync"
	}
	return filepath.Join(home, ".favsync")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := cli.NewRootCmd(loadConfig())
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
