package iris_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-workflow/pkg/iris"
	"github.com/askiada/go-workflow/pkg/pipeline"
	"github.com/askiada/go-workflow/pkg/pipeline/model"
)

func TestDeclareEndToEnd(t *testing.T) {
	t.Parallel()

	def, err := iris.Declare("s3://bucket/iris.csv", "iris_model")
	require.NoError(t, err)

	spec := def.Spec()
	assert.Equal(t, "iris-git-demo", spec.Name)
	assert.Equal(t, []model.Parameter{
		{Name: "dataset_uri", Required: true},
		{Name: "model_name", Default: "iris_model"},
	}, spec.Parameters)

	steps := def.Steps()
	require.Len(t, steps, 2)

	train := steps[0]
	assert.Equal(t, "trainer", train.Name)
	assert.Equal(t, model.RunStepType, train.Type)
	assert.Equal(t, model.FunctionRef("trainer"), train.Function)
	assert.Equal(t, "train", train.Handler)
	assert.Equal(t, map[string]model.ArtifactRef{"dataset": model.URI("s3://bucket/iris.csv")}, train.Inputs)
	assert.Equal(t, model.Params{
		"model_class":           "sklearn.ensemble.RandomForestClassifier",
		"train_test_split_size": 0.2,
		"label_columns":         "label",
		"model_name":            "iris_model",
	}, train.Params)
	assert.Equal(t, []string{"model"}, train.Outputs)

	modelRef, err := train.Output("model")
	require.NoError(t, err)

	serving := steps[1]
	assert.Equal(t, "serving", serving.Name)
	assert.Equal(t, model.DeployStepType, serving.Type)
	assert.Equal(t, model.FunctionRef("serving"), serving.Function)
	assert.Equal(t, []model.ModelDescriptor{
		{
			Key:       "iris_model",
			ModelPath: modelRef,
			ClassName: "mlrun.frameworks.sklearn.SklearnModelServer",
		},
	}, serving.Models)
	assert.Equal(t, "{{steps.trainer.outputs.model}}", serving.Models[0].ModelPath.String())

	deps, err := def.Dependencies("serving")
	require.NoError(t, err)
	assert.Equal(t, []string{"trainer"}, deps)
}

func TestDeclareModelNameProperties(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		datasetURI string
		modelName  string
		wantKey    string
	}{
		"default model name": {datasetURI: "s3://bucket/iris.csv", modelName: "", wantKey: "iris_model"},
		"custom model name":  {datasetURI: "s3://bucket/iris.csv", modelName: "flowers", wantKey: "flowers"},
		"local dataset":      {datasetURI: "/data/iris.csv", modelName: "local_model", wantKey: "local_model"},
	}

	for name, tc := range tcs {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			def, err := iris.Declare(tc.datasetURI, tc.modelName)
			require.NoError(t, err)

			train, ok := def.Step("trainer")
			require.True(t, ok)
			assert.True(t, train.DeclaresOutput("model"))
			assert.Equal(t, "sklearn.ensemble.RandomForestClassifier", train.Params["model_class"])
			assert.Equal(t, 0.2, train.Params["train_test_split_size"])
			assert.Equal(t, "label", train.Params["label_columns"])
			assert.Equal(t, tc.wantKey, train.Params["model_name"])

			serving, ok := def.Step("serving")
			require.True(t, ok)
			require.Len(t, serving.Models, 1)
			assert.Equal(t, tc.wantKey, serving.Models[0].Key)
			assert.Equal(t, model.StepOutput("trainer", "model"), serving.Models[0].ModelPath)
		})
	}
}

func TestDeclareMissingDataset(t *testing.T) {
	t.Parallel()

	_, err := iris.Declare("", "iris_model")
	assert.ErrorIs(t, err, pipeline.ErrMissingParameter)
}

func TestTemplateRejectsUnknownArguments(t *testing.T) {
	t.Parallel()

	_, err := iris.Template().Compile(pipeline.Arguments{
		"dataset_uri": "s3://bucket/iris.csv",
		"epochs":      "10",
	})
	assert.ErrorIs(t, err, pipeline.ErrUnknownParameter)
}

func TestDeclareYAMLRoundTrip(t *testing.T) {
	t.Parallel()

	def, err := iris.Declare("s3://bucket/iris.csv", "")
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	require.NoError(t, def.WriteYAML(buf))
	assert.Contains(t, buf.String(), `model_path: "{{steps.trainer.outputs.model}}"`)

	loaded, err := pipeline.LoadDefinition(buf)
	require.NoError(t, err)
	assert.Equal(t, def.Steps(), loaded.Steps())
	assert.Equal(t, def.Arguments(), loaded.Arguments())
}

func TestDeclareRunsLocally(t *testing.T) {
	t.Parallel()

	def, err := iris.Declare("s3://bucket/iris.csv", "")
	require.NoError(t, err)

	trainer := pipeline.NewDryRunComponent(iris.TrainerFunction, "s3://artifacts")
	serving := pipeline.NewDryRunComponent(iris.ServingFunction, "s3://artifacts")

	runner, err := pipeline.NewRunner([]pipeline.Component{trainer, serving},
		pipeline.RunnerRunID(func() string { return "run-1" }))
	require.NoError(t, err)

	res, err := runner.Run(context.Background(), def)
	require.NoError(t, err)
	assert.Equal(t, []string{"trainer", "serving"}, res.Order)

	require.Len(t, trainer.Calls(), 1)
	assert.Equal(t, map[string]string{"dataset": "s3://bucket/iris.csv"}, trainer.Calls()[0].Inputs)

	require.Len(t, serving.Calls(), 1)
	assert.Equal(t, []pipeline.Model{
		{
			Key:       "iris_model",
			ModelPath: "s3://artifacts/run-1/trainer/model",
			ClassName: "mlrun.frameworks.sklearn.SklearnModelServer",
		},
	}, serving.Calls()[0].Models)
}

func TestTrainerParamsValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, iris.DefaultTrainerParams("iris_model").Validate())

	tcs := map[string]func(tp *iris.TrainerParams){
		"no class":      func(tp *iris.TrainerParams) { tp.ModelClass = "" },
		"no label":      func(tp *iris.TrainerParams) { tp.LabelColumns = "" },
		"no model name": func(tp *iris.TrainerParams) { tp.ModelName = "" },
		"split zero":    func(tp *iris.TrainerParams) { tp.TrainTestSplitSize = 0 },
		"split one":     func(tp *iris.TrainerParams) { tp.TrainTestSplitSize = 1 },
	}

	for name, mutate := range tcs {
		mutate := mutate
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			tp := iris.DefaultTrainerParams("iris_model")
			mutate(&tp)
			assert.ErrorIs(t, tp.Validate(), iris.ErrInvalidTrainerParams)
		})
	}
}
