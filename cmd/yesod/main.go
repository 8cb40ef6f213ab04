// Command yesod es el broker de identidad: login social, tokens propios y
// endpoints OIDC.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/yesod/internal/app"
	"github.com/dropDatabas3/yesod/internal/config"
	"github.com/dropDatabas3/yesod/internal/observability/logger"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootFlags struct {
	configPath string
	envFile    string
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}

	root := &cobra.Command{
		Use:           "yesod",
		Short:         "Broker de identidad OAuth2/OIDC",
		Version:       app.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&f.configPath, "config", envOr("YESOD_CONFIG", "configs/config.yaml"), "ruta al YAML de configuración (env YESOD_CONFIG)")
	root.PersistentFlags().StringVar(&f.envFile, "env-file", ".env", "archivo .env opcional")

	root.AddCommand(newServeCmd(f), newMigrateCmd(f), newKeysCmd())
	return root
}

// load carga .env (si existe), la config e inicializa el logger global.
func (f *rootFlags) load() (*config.Config, error) {
	if f.envFile != "" {
		_ = godotenv.Load(f.envFile)
	}
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(logger.Config{
		Env:         cfg.Log.Env,
		Level:       cfg.Log.Level,
		ServiceName: "yesod",
		Version:     app.Version,
	})
	return cfg, nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
