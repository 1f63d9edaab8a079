package cmd

import (
	"github.com/spf13/cobra"

	"github.com/automl-framework/orchestrator/apiserver"
	"github.com/automl-framework/orchestrator/config"
	"github.com/automl-framework/orchestrator/context"
	"github.com/automl-framework/orchestrator/log"
	"github.com/automl-framework/orchestrator/runner"
	"github.com/automl-framework/orchestrator/util"
)

func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orchestrator",
		Short: "AutoML run orchestrator",
	}
	cmd.PersistentFlags().StringVarP(&config.ConfigPath, "config", "c", "config.json", "Config file path")
	cmd.AddCommand(ServeCmd())
	return cmd
}

// ServeCmd serves the control API backed by a simulated training cluster
func ServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the orchestrator API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.ParseConfig(config.ConfigPath)
			if err != nil {
				return err
			}
			log.Init(log.Config{
				Path:   cfg.LogConfig.Path,
				Format: cfg.LogConfig.Format,
				Level:  cfg.LogConfig.Level,
			})
			logger := log.DefaultLogger

			backend := runner.NewBackend()
			datasets := runner.NewDatasetRegistry()
			datasets.Put(runner.NewDataset("demo_train", 10000))
			datasets.Put(runner.NewDataset("demo_valid", 2000))

			ctx := context.NewRootContext(cfg, backend, datasets, logger)
			server := apiserver.NewAPIServer(ctx)
			server.Start()

			<-util.Term()
			logger.Info("Shutting down")
			server.Stop()
			ctx.Stop()
			log.Destroy()
			return nil
		},
	}
}
