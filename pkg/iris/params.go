package iris

import (
	"github.com/pkg/errors"

	"github.com/askiada/go-workflow/pkg/pipeline/model"
)

// ErrInvalidTrainerParams is returned when trainer parameters fail validation.
var ErrInvalidTrainerParams = errors.New("invalid trainer params")

// TrainerParams are the parameters handed to the trainer function.
type TrainerParams struct {
	// ModelClass is the fully qualified class of the estimator to fit.
	ModelClass string
	// TrainTestSplitSize is the fraction of the dataset kept for testing.
	TrainTestSplitSize float64
	// LabelColumns names the column holding the labels.
	LabelColumns string
	// ModelName is the name the trained model is logged under.
	ModelName string
}

// DefaultTrainerParams returns the parameters of the Iris training step for modelName.
func DefaultTrainerParams(modelName string) TrainerParams {
	return TrainerParams{
		ModelClass:         RandomForestClassifier,
		TrainTestSplitSize: 0.2,
		LabelColumns:       "label",
		ModelName:          modelName,
	}
}

// Validate checks that every field is set and the split size is strictly between 0 and 1.
func (tp TrainerParams) Validate() error {
	switch {
	case tp.ModelClass == "":
		return errors.Wrap(ErrInvalidTrainerParams, "model class must be set")
	case tp.LabelColumns == "":
		return errors.Wrap(ErrInvalidTrainerParams, "label columns must be set")
	case tp.ModelName == "":
		return errors.Wrap(ErrInvalidTrainerParams, "model name must be set")
	case tp.TrainTestSplitSize <= 0 || tp.TrainTestSplitSize >= 1:
		return errors.Wrapf(ErrInvalidTrainerParams, "train test split size must be in (0, 1), got %v", tp.TrainTestSplitSize)
	}

	return nil
}

// Params returns the parameter bag passed to the trainer.
func (tp TrainerParams) Params() model.Params {
	return model.Params{
		"model_class":           tp.ModelClass,
		"train_test_split_size": tp.TrainTestSplitSize,
		"label_columns":         tp.LabelColumns,
		"model_name":            tp.ModelName,
	}
}
