package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/handloom_be/internal/config"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/logging"
)

var (
	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "api",
	Short: "Handloom marketplace API",
	Long: `Backend for the handloom marketplace: catalog, cart and checkout,
orders, weaver dashboards and customer/weaver chat.

Run without a subcommand to start the HTTP server.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		cfg = config.Load()

		l, err := logging.New(cfg.LogLevel, cfg.LogDev)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and websocket server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database tables",
	RunE:  runMigrate,
}

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demo weavers, customers and products from a YAML file",
	Long: `Registers every user in the file whose email is not taken yet and
creates the products of newly created weavers. Running the same file twice
changes nothing.

Example:
  api seed --file catalog.yaml`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "catalog.yaml", "seed file")
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
