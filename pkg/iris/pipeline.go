// Package iris declares the Iris demo pipeline: train a random forest on a dataset,
// then deploy the trained model behind a scikit-learn model server.
package iris

import (
	"github.com/pkg/errors"

	"github.com/askiada/go-workflow/pkg/pipeline"
	"github.com/askiada/go-workflow/pkg/pipeline/model"
)

const (
	PipelineName = "iris-git-demo"

	DatasetURIParam = "dataset_uri"
	ModelNameParam  = "model_name"

	DefaultModelName = "iris_model"

	// TrainerFunction and ServingFunction are the functions the orchestrator resolves.
	TrainerFunction model.FunctionRef = "trainer"
	ServingFunction model.FunctionRef = "serving"

	TrainHandler = "train"
	DatasetInput = "dataset"
	ModelOutput  = "model"

	RandomForestClassifier = "sklearn.ensemble.RandomForestClassifier"
	SklearnModelServer     = "mlrun.frameworks.sklearn.SklearnModelServer"
)

// Spec is the specification of the Iris pipeline.
func Spec() model.PipelineSpec {
	return model.PipelineSpec{
		Name: PipelineName,
		Parameters: []model.Parameter{
			model.RequiredParameter(DatasetURIParam),
			model.OptionalParameter(ModelNameParam, DefaultModelName),
		},
	}
}

// Template is the Iris pipeline as a template compiled from an argument map.
func Template() pipeline.Template {
	return pipeline.Template{
		Spec:  Spec(),
		Build: build,
	}
}

// Declare compiles the Iris pipeline for a dataset. An empty modelName falls back to DefaultModelName.
func Declare(datasetURI, modelName string, opts ...model.PipelineOption) (*pipeline.Definition, error) {
	return Template().Compile(pipeline.Arguments{
		DatasetURIParam: datasetURI,
		ModelNameParam:  modelName,
	}, opts...)
}

func build(pipe *pipeline.Pipeline, args pipeline.Arguments) error {
	modelName := args.Get(ModelNameParam)

	trainerParams := DefaultTrainerParams(modelName)

	err := trainerParams.Validate()
	if err != nil {
		return err
	}

	train, err := pipeline.AddRunStep(pipe, string(TrainerFunction), TrainerFunction,
		pipeline.StepInput(DatasetInput, model.URI(args.Get(DatasetURIParam))),
		pipeline.StepParams(trainerParams.Params()),
		pipeline.StepHandler(TrainHandler),
		pipeline.StepOutputs(ModelOutput),
	)
	if err != nil {
		return errors.Wrap(err, "unable to add training step")
	}

	modelPath, err := train.Output(ModelOutput)
	if err != nil {
		return errors.Wrap(err, "unable to reference trained model")
	}

	_, err = pipeline.AddDeployStep(pipe, string(ServingFunction), ServingFunction, []model.ModelDescriptor{
		{
			Key:       modelName,
			ModelPath: modelPath,
			ClassName: SklearnModelServer,
		},
	})
	if err != nil {
		return errors.Wrap(err, "unable to add deployment step")
	}

	return nil
}
