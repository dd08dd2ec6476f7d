// Command workflow declares the Iris pipeline, writes its definition for an orchestrator
// and rehearses it locally.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/gommon/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/askiada/go-workflow/internal/logging"
)

type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config
	logger  *log.Logger
}

func newRootCmd(stderr io.Writer) *cobra.Command {
	a := &app{v: newViper()}

	root := &cobra.Command{
		Use:           "workflow",
		Short:         "Declare, export and rehearse the Iris training pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			err := bindFlags(a.v, cmd.Flags())
			if err != nil {
				return err
			}

			a.cfg, err = loadConfig(a.v, a.cfgFile)
			if err != nil {
				return err
			}

			a.logger = logging.New("workflow", a.cfg.Log.Level, stderr)
			if used := a.v.ConfigFileUsed(); used != "" {
				a.logger.Infof("configuration loaded from %s", used)
			}

			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default ./workflow.yaml)")
	flags.String("log-level", defaultLogLvl, "log level: debug, info, warn, error or off")
	flags.String("dataset-uri", "", "URI of the training dataset")
	flags.String("model-name", "", "name of the trained model (default iris_model)")

	root.AddCommand(newCompileCmd(a), newRunCmd(a))

	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd(os.Stderr).ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
