package main

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/askiada/go-workflow/pkg/iris"
	"github.com/askiada/go-workflow/pkg/pipeline"
	"github.com/askiada/go-workflow/pkg/pipeline/drawer"
	"github.com/askiada/go-workflow/pkg/pipeline/measure"
)

func newCompileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Write the Iris pipeline definition for an orchestrator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			def, err := iris.Declare(a.cfg.Pipeline.DatasetURI, a.cfg.Pipeline.ModelName)
			if err != nil {
				return errors.Wrap(err, "unable to declare pipeline")
			}

			a.logger.Infof("compiled pipeline %s with %d steps", def.Spec().Name, len(def.Steps()))

			err = writeDefinition(def, a.cfg.Output.Format, a.cfg.Output.Path, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			return writeDOT(def, nil, a.cfg.DOT.Path)
		},
	}

	cmd.Flags().String("format", yamlFormat, "definition format: yaml or json")
	cmd.Flags().StringP("output", "o", stdoutPath, "definition file, - for stdout")
	cmd.Flags().String("dot", "", "also write the pipeline graph to this DOT file")

	return cmd
}

// createOutput opens path for writing. "-" and "" mean stdout.
func createOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" || path == stdoutPath {
		return stdout, func() error { return nil }, nil
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "unable to create %s", path)
	}

	return file, file.Close, nil
}

func writeDefinition(def *pipeline.Definition, format, path string, stdout io.Writer) error {
	wrt, closeFn, err := createOutput(path, stdout)
	if err != nil {
		return err
	}

	if format == jsonFormat {
		err = def.WriteJSON(wrt)
	} else {
		err = def.WriteYAML(wrt)
	}

	if err != nil {
		_ = closeFn()

		return err
	}

	return errors.Wrapf(closeFn(), "unable to close %s", path)
}

func writeDOT(def *pipeline.Definition, msr measure.Measure, path string) error {
	if path == "" {
		return nil
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "unable to create %s", path)
	}

	err = drawer.DrawDefinition(def, msr, file)
	if err != nil {
		_ = file.Close()

		return errors.Wrap(err, "unable to draw pipeline")
	}

	return errors.Wrapf(file.Close(), "unable to close %s", path)
}
