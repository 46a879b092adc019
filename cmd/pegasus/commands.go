package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ashiqtasdid/pegasus-sub000/internal/app"
	"github.com/ashiqtasdid/pegasus-sub000/internal/config"
	"github.com/ashiqtasdid/pegasus-sub000/internal/service"
	"github.com/ashiqtasdid/pegasus-sub000/internal/types"
)

type rootFlags struct {
	envFiles []string
}

func newRootCmd() *cobra.Command {
	rf := &rootFlags{}
	root := &cobra.Command{
		Use:           "pegasus",
		Short:         "Generate Minecraft plugins with a language model and heal their builds",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringSliceVar(&rf.envFiles, "env-file", nil, "dotenv files to load (default .env)")

	root.AddCommand(newGenerateCmd(rf), newFixCmd(rf), newServeCmd(rf))
	return root
}

func setup(ctx context.Context, rf *rootFlags, stderr io.Writer) (*app.App, error) {
	cfg, err := config.Load(rf.envFiles...)
	if err != nil {
		return nil, err
	}
	logger := app.NewLogger(stderr, cfg.LogLevel, cfg.LogFormat)
	return app.New(ctx, cfg, logger, app.Options{})
}

func requestFlags(cmd *cobra.Command, req *types.GenerationRequest) {
	cmd.Flags().StringVar(&req.UserID, "user", "", "owner of the project (required)")
	cmd.Flags().StringVar(&req.PluginName, "plugin", "", "plugin name (required)")
	cmd.Flags().IntVar(&req.MaxIterations, "max-iterations", 0, "fix loop budget (0 uses MAX_FIX_ITERATIONS)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("plugin")
}

func newGenerateCmd(rf *rootFlags) *cobra.Command {
	var req types.GenerationRequest
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a plugin project, build it and fix compile errors",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.Requirements == "" {
				return errors.New("--requirements is required")
			}
			return runRequest(cmd, rf, func(ctx context.Context, svc *service.Service) (service.Response, error) {
				return svc.Generate(ctx, req)
			})
		},
	}
	requestFlags(cmd, &req)
	cmd.Flags().StringVar(&req.Requirements, "requirements", "", "what the plugin should do")
	cmd.Flags().StringVar(&req.TargetVersion, "target-version", "", "Minecraft API version, e.g. 1.20.4")
	return cmd
}

func newFixCmd(rf *rootFlags) *cobra.Command {
	var req types.GenerationRequest
	cmd := &cobra.Command{
		Use:   "fix",
		Short: "Build an existing project and fix compile errors",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRequest(cmd, rf, func(ctx context.Context, svc *service.Service) (service.Response, error) {
				return svc.Fix(ctx, req)
			})
		},
	}
	requestFlags(cmd, &req)
	return cmd
}

func runRequest(cmd *cobra.Command, rf *rootFlags, call func(context.Context, *service.Service) (service.Response, error)) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx, rf, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := call(ctx, a.Service)
	if err != nil {
		return err
	}
	a.Logger.Info("llm usage", "usage", a.Usage.Snapshot())

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("build did not succeed: %s", resp.Message)
	}
	return nil
}

func newServeCmd(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP and websocket API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd.Context(), rf, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			srv := a.Server()
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-errCh:
				return err
			case <-quit:
			}

			a.Logger.Info("shutting down server")
			ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				return fmt.Errorf("server forced to shutdown: %w", err)
			}
			a.Logger.Info("server exiting")
			return nil
		},
	}
}
