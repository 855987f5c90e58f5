// Package logging LOG_LEVEL に応じた slog.Logger を構築する
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel ログレベル文字列を slog.Level に変換（不明な値は INFO）
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New ロガーを作成。json が true ならJSON形式（Lambda向け）
func New(w io.Writer, level string, json bool) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
