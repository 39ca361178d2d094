package app

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/hitoshi/activityfeed/internal/config"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はHTTPサーバーモードで起動することを示す。
	// サブコマンド省略時もこのモードになる。
	CommandServe Command = "serve"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// defaultEnvFile は起動時に読み込む.envファイル。存在しなければ無視する。
const defaultEnvFile = ".env"

// options はコマンドラインフラグの値を保持する。
// 指定されたフラグのみが環境変数由来の設定を上書きする。
type options struct {
	port       string
	logPath    string
	maxResults int
	configDir  string
	envFile    string
}

// NewRootCommand はactivityfeedのルートコマンドを生成する。
// wはログとコマンド出力の書き込み先。
func NewRootCommand(w io.Writer) *cobra.Command {
	return newRootCommand(w, &options{})
}

func newRootCommand(w io.Writer, opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:           "activityfeed",
		Short:         "Serve public activity streams as RSS",
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServeCommand(cmd, w, opts)
		},
	}
	root.SetVersionTemplate("activityfeed version {{.Version}}\n")
	root.SetOut(w)
	root.SetErr(w)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.port, "port", "", "HTTP listen port (SERVER_PORT)")
	flags.StringVar(&opts.logPath, "log-path", "", "directory for server.log (LOG_DIR)")
	flags.IntVar(&opts.maxResults, "max-results", 0, "activities requested per feed (MAX_RESULTS)")
	flags.StringVar(&opts.configDir, "config-dir", "", "directory holding credentials (CONFIG_DIR)")
	flags.StringVar(&opts.envFile, "env-file", defaultEnvFile, ".env file loaded before reading the environment")

	root.AddCommand(&cobra.Command{
		Use:   string(CommandServe),
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServeCommand(cmd, w, opts)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   string(CommandHealthcheck),
		Short: "Check that a local server answers /health",
		Args:  cobra.NoArgs,
		// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(opts.envFile); err != nil {
				return err
			}
			port := opts.port
			if !cmd.Flags().Changed("port") {
				port = envOrDefault("SERVER_PORT", "8080")
			}
			return runHealthcheck(port)
		},
	})

	return root
}

// apply は明示的に指定されたフラグの値でcfgを上書きする。
func (o *options) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.ServerPort = o.port
	}
	if flags.Changed("log-path") {
		cfg.LogDir = o.logPath
	}
	if flags.Changed("max-results") {
		cfg.MaxResults = o.maxResults
	}
	if flags.Changed("config-dir") {
		cfg.ConfigDir = o.configDir
	}
}
