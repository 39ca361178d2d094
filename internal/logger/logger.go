package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFileName はログディレクトリ配下に作成するログファイル名。
const LogFileName = "server.log"

// Setup はJSON構造化ログ出力のslog.Loggerを生成して返す。
// writerが指定された場合はそのwriterに出力する。
func Setup(w io.Writer) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return slog.New(handler)
}

// SetupDefault はOpenでロガーを生成し、グローバルロガーとして設定する。
// consoleがnilの場合はos.Stdoutに出力する。
// 返されるio.Closerはシャットダウン時に閉じること。
func SetupDefault(console io.Writer, logDir string) (*slog.Logger, io.Closer) {
	logger, closer := Open(console, logDir)
	slog.SetDefault(logger)
	return logger, closer
}

// NewRotatingWriter はlogDir/server.logへ書き込むローテーション付きwriterを返す。
// lumberjackのサイズ指定はMB単位のため、最小の1MBでローテーションし、5世代まで保持する。
func NewRotatingWriter(logDir string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.Join(logDir, LogFileName),
		MaxSize:    1,
		MaxBackups: 5,
	}
}

// Open はconsoleとログファイルの両方に出力するslog.Loggerを生成する。
// logDirが空の場合はconsoleのみに出力する。
// 返されるio.Closerはシャットダウン時にログファイルを閉じるために使う。
func Open(console io.Writer, logDir string) (*slog.Logger, io.Closer) {
	if console == nil {
		console = os.Stdout
	}
	if logDir == "" {
		return Setup(console), nopCloser{}
	}

	file := NewRotatingWriter(logDir)
	return Setup(io.MultiWriter(console, file)), file
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
