package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/quarterdeck"
	"pkt.systems/quarterdeck/core"
	"pkt.systems/quarterdeck/httpapi"
	"pkt.systems/quarterdeck/internal/appconfig"
	"pkt.systems/quarterdeck/internal/chat"
	"pkt.systems/quarterdeck/internal/shell"
	"pkt.systems/quarterdeck/internal/webengine"
)

func newServeCmd() *cobra.Command {
	var cfgPath string
	var addr string
	var headful bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the quarterdeck server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTP.Addr = addr
			}
			if headful {
				cfg.Browser.Headless = false
			}

			engine, err := webengine.New(cmd.Context(), webengine.Config{
				Headless:  cfg.Browser.Headless,
				NoSandbox: cfg.Browser.NoSandbox,
				ExecPath:  cfg.Browser.ExecPath,
			}, logger)
			if err != nil {
				return err
			}
			defer func() { _ = engine.Close() }()

			runner := shell.New(shell.Config{
				Shell:  cfg.Shell.Shell,
				UsePTY: cfg.Shell.UsePTY,
				Env:    cfg.Shell.Env,
			}, logger)

			var assistant core.Assistant
			if len(cfg.Chat.Backends) > 0 {
				assistant = chat.New(cfg.ChatSettings(), logger)
			}

			serverCfg := quarterdeck.ServerConfig{
				Service: cfg.ServiceSettings(),
				HTTP: httpapi.Config{
					Addr:         cfg.HTTP.Addr,
					AuthToken:    cfg.HTTP.AuthToken,
					StreamReplay: cfg.HTTP.StreamReplay,
				},
			}
			serverDeps := quarterdeck.ServerDeps{
				ServiceDeps: core.ServiceDeps{
					Pages:     engine,
					Shell:     runner,
					Assistant: assistant,
					Logger:    logger,
				},
			}
			server, err := quarterdeck.New(serverCfg, serverDeps, quarterdeck.WithHTTP())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Stop(stopCtx); err != nil {
					logger.Warn("server stop failed", "err", err)
				}
			}()
			logger.Info("http server listening", "addr", serverCfg.HTTP.Addr)
			if err := server.Start(ctx); err != nil {
				return err
			}
			return server.Wait()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&addr, "addr", "", "override http listen address")
	cmd.Flags().BoolVar(&headful, "headful", false, "run the browser with a visible window")
	return cmd
}

func newConfigCmd() *cobra.Command {
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write the default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			written, err := appconfig.WriteDefault(path, overwrite)
			if err != nil {
				return err
			}
			pslog.Ctx(cmd.Context()).Info("config written", "path", written)
			return nil
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "overwrite an existing config")
	return cmd
}
