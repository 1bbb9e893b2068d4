package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"zentry/api"
	"zentry/engine/actors"
	"zentry/engine/library"
	"zentry/reputation"
)

const programName = "zentry"

var rootDir string

// loadConfig reads <rootDir>/config.yaml, writes back missing keys, then layers the flags over it.
func loadConfig(cmd *cobra.Command) (*viper.Viper, error) {
	conf := viper.New()
	if rootDir != "" {
		conf.Set("rootDir", strings.TrimRight(rootDir, "/")+"/")
	}
	actors.InitConfig(conf)
	for key, flag := range map[string]string{
		"dev":           "dev",
		"listenAddr":    "listen",
		"logLevel":      "log-level",
		"store.backend": "store",
	} {
		if err := conf.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return nil, err
		}
	}
	return conf, nil
}

func withApp(cmd *cobra.Command, f func(a *app) error) error {
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := build(conf)
	if err != nil {
		return err
	}
	defer a.close()
	return f(a)
}

func printJSON(v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the reputation API and run the periodic re-scorer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				runtime := actors.NewRuntime()
				reputation.NewRescorer(a.service, a.settings.RescoreInterval).Start(runtime)

				errs := make(chan error, 1)
				go func() {
					errs <- api.Serve(a.settings.ListenAddr, api.New(a.handler), runtime.GetTerminateChan())
				}()
				sigs := make(chan os.Signal, 1)
				signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
				defer signal.Stop(sigs)

				var err error
				select {
				case sig := <-sigs:
					library.LogCLI(fmt.Sprintf("received %s, shutting down", sig), 4)
					runtime.Shutdown()
					err = <-errs
				case err = <-errs:
					runtime.Shutdown()
				}
				library.LogCLI("api has shut down", 4)
				return err
			})
		},
	}
}

func scoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "score <address>",
		Short: "Collect signals for an address, score it and store the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				report, err := a.service.Initialize(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(report)
			})
		},
	}
}

func explainCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "explain <address> [question]",
		Short: "Explain how an address's score comes about",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				text, err := a.service.ExplainText(cmd.Context(), args[0], strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				fmt.Println(text)
				return nil
			})
		},
	}
}

func consoleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Interactive keypress console for inspecting local state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				interrupt := make(chan struct{})
				go cliListener(cmd.Context(), interrupt, a)
				<-interrupt
				return nil
			})
		},
	}
}

func main() {
	rootCmd := &cobra.Command{
		Use:          programName,
		Short:        "Web3 reputation aggregation and scoring",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&rootDir, "root-dir", "", "working directory holding config.yaml, the wallet and data (default ~/zentry)")
	rootCmd.PersistentFlags().Bool("dev", false, "use built in demo signals and accept every identity verification")
	rootCmd.PersistentFlags().String("listen", "127.0.0.1:8645", "API listen address")
	rootCmd.PersistentFlags().Int("log-level", 4, "log verbosity, 0 fatal to 5 trace")
	rootCmd.PersistentFlags().String("store", "memory", "profile store backend: memory or badger")

	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(scoreCommand())
	rootCmd.AddCommand(explainCommand())
	rootCmd.AddCommand(consoleCommand())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
