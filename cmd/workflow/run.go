package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/askiada/go-workflow/pkg/iris"
	"github.com/askiada/go-workflow/pkg/pipeline"
	"github.com/askiada/go-workflow/pkg/pipeline/measure"
	"github.com/askiada/go-workflow/pkg/pipeline/model"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Rehearse the pipeline locally with dry-run trainer and serving functions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			msr := measure.NewDefaultMeasure()

			def, err := a.definition(measure.PipelineMeasure(msr))
			if err != nil {
				return err
			}

			runner, err := pipeline.NewRunner([]pipeline.Component{
				pipeline.NewDryRunComponent(iris.TrainerFunction, a.cfg.Run.ArtifactRoot),
				pipeline.NewDryRunComponent(iris.ServingFunction, a.cfg.Run.ArtifactRoot),
			},
				pipeline.RunnerConcurrency(a.cfg.Run.Concurrency),
				pipeline.RunnerLogger(a.logger),
			)
			if err != nil {
				return errors.Wrap(err, "unable to create runner")
			}

			res, err := runner.Run(cmd.Context(), def)
			if err != nil {
				return errors.Wrap(err, "pipeline run failed")
			}

			err = printRun(cmd.OutOrStdout(), res, msr)
			if err != nil {
				return err
			}

			return writeDOT(def, msr, a.cfg.DOT.Path)
		},
	}

	cmd.Flags().String("definition", "", "run this definition file instead of declaring the Iris pipeline")
	cmd.Flags().Int("concurrency", 1, "maximum number of steps running at the same time")
	cmd.Flags().String("artifact-root", defaultRootDir, "root of the made up output locations")
	cmd.Flags().String("dot", "", "write the measured pipeline graph to this DOT file")

	return cmd
}

// definition loads the configured definition file, or declares the Iris pipeline.
func (a *app) definition(opts ...model.PipelineOption) (*pipeline.Definition, error) {
	path := a.cfg.Run.Definition
	if path == "" {
		def, err := iris.Declare(a.cfg.Pipeline.DatasetURI, a.cfg.Pipeline.ModelName, opts...)
		if err != nil {
			return nil, errors.Wrap(err, "unable to declare pipeline")
		}

		return def, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open %s", path)
	}
	defer file.Close()

	def, err := pipeline.LoadDefinition(file, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to load %s", path)
	}

	a.logger.Infof("loaded definition %s from %s", def.Spec().Name, path)

	return def, nil
}

func printRun(wrt io.Writer, res *pipeline.RunResult, msr measure.Measure) error {
	tw := tabwriter.NewWriter(wrt, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "run\t%s\n", res.RunID)
	fmt.Fprintln(tw, "STEP\tDURATION\tOUTPUTS")

	for _, name := range res.Order {
		step := res.Steps[name]

		outputs := make([]string, 0, len(step.Outputs))
		for output, location := range step.Outputs {
			outputs = append(outputs, output+"="+location)
		}

		sort.Strings(outputs)

		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, measure.Round(step.Elapsed), strings.Join(outputs, " "))
	}

	if total := msr.GetMetric(measure.TotalStepName); total != nil {
		fmt.Fprintf(tw, "total\t%s\t\n", measure.Round(total.GetTotalDuration()))
	}

	return errors.Wrap(tw.Flush(), "unable to print run summary")
}
