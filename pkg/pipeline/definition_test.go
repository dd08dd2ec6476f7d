package pipeline_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/askiada/go-workflow/pkg/pipeline"
	"github.com/askiada/go-workflow/pkg/pipeline/model"
)

func compileTrainServe(t *testing.T) *pipeline.Definition {
	t.Helper()

	pipe := newPipe(t)
	train := addTrainer(t, pipe, "trainer")

	modelRef, err := train.Output("model")
	require.NoError(t, err)

	_, err = pipeline.AddDeployStep(pipe, "serving", "serving", []model.ModelDescriptor{
		{Key: "default_model", ModelPath: modelRef, ClassName: "Server"},
	})
	require.NoError(t, err)

	def, err := pipe.Compile(pipeline.Arguments{"dataset_uri": "s3://bucket/data.csv"})
	require.NoError(t, err)

	return def
}

func TestDefinitionWriteYAML(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	require.NoError(t, compileTrainServe(t).WriteYAML(buf))
	assert.Contains(t, buf.String(), `model_path: "{{steps.trainer.outputs.model}}"`)

	got := map[string]interface{}{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))

	want := map[string]interface{}{
		"name": "test",
		"parameters": []interface{}{
			map[string]interface{}{"name": "dataset_uri", "required": true},
			map[string]interface{}{"name": "model_name", "default": "default_model"},
		},
		"arguments": map[string]interface{}{
			"dataset_uri": "s3://bucket/data.csv",
			"model_name":  "default_model",
		},
		"steps": []interface{}{
			map[string]interface{}{
				"name":     "trainer",
				"type":     "run",
				"function": "trainer",
				"handler":  "train",
				"inputs":   map[string]interface{}{"dataset": "s3://bucket/data.csv"},
				"params":   map[string]interface{}{"epochs": 3},
				"outputs":  []interface{}{"model", "metrics"},
			},
			map[string]interface{}{
				"name":     "serving",
				"type":     "deploy",
				"function": "serving",
				"models": []interface{}{
					map[string]interface{}{
						"key":        "default_model",
						"model_path": "{{steps.trainer.outputs.model}}",
						"class_name": "Server",
					},
				},
				"dependencies": []interface{}{"trainer"},
			},
		},
	}
	assert.Equal(t, want, got)
}

func TestDefinitionJSONRoundTrip(t *testing.T) {
	t.Parallel()

	def := compileTrainServe(t)

	buf := &bytes.Buffer{}
	require.NoError(t, def.WriteJSON(buf))
	assert.Contains(t, buf.String(), `"model_path": "{{steps.trainer.outputs.model}}"`)

	loaded, err := pipeline.LoadDefinition(buf)
	require.NoError(t, err)
	assert.Equal(t, def.Spec(), loaded.Spec())
	assert.Equal(t, def.Arguments(), loaded.Arguments())
	assert.Equal(t, def.Links(), loaded.Links())

	// JSON numbers come back as the YAML decoder sees them.
	train, ok := loaded.Step("trainer")
	require.True(t, ok)
	assert.Equal(t, 3, train.Params["epochs"])
}

func TestLoadDefinitionErrors(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		doc     string
		wantErr error
	}{
		"consumer before producer": {
			doc: `name: test
steps:
  - name: serving
    type: deploy
    function: serving
    models:
      - key: m
        model_path: "{{steps.trainer.outputs.model}}"
        class_name: Server
  - name: trainer
    type: run
    function: trainer
    outputs: [model]
`,
			wantErr: pipeline.ErrDanglingReference,
		},
		"wrong dependencies": {
			doc: `name: test
steps:
  - name: trainer
    type: run
    function: trainer
    outputs: [model]
  - name: audit
    type: run
    function: auditor
    dependencies: [trainer]
`,
			wantErr: pipeline.ErrInconsistentDeps,
		},
		"invalid placeholder": {
			doc: `name: test
steps:
  - name: trainer
    type: run
    function: trainer
    inputs:
      dataset: "{{steps.prepare}}"
`,
			wantErr: model.ErrInvalidArtifactRef,
		},
		"deploy without models": {
			doc: `name: test
steps:
  - name: serving
    type: deploy
    function: serving
`,
			wantErr: pipeline.ErrNoModels,
		},
		"unknown argument": {
			doc: `name: test
arguments:
  epochs: "3"
steps: []
`,
			wantErr: pipeline.ErrUnknownParameter,
		},
	}

	for name, tc := range tcs {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := pipeline.LoadDefinition(strings.NewReader(tc.doc))
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestLoadDefinitionUnknownStepType(t *testing.T) {
	t.Parallel()

	_, err := pipeline.LoadDefinition(strings.NewReader(`name: test
steps:
  - name: trainer
    type: schedule
    function: trainer
`))
	assert.ErrorContains(t, err, "unknown step type")
}

func TestDefinitionIsImmutable(t *testing.T) {
	t.Parallel()

	def := compileTrainServe(t)

	steps := def.Steps()
	steps[0].Outputs[0] = "weights"
	steps[1].Models[0].Key = "other"

	args := def.Arguments()
	args["model_name"] = "other"

	train, ok := def.Step("trainer")
	require.True(t, ok)
	assert.Equal(t, []string{"model", "metrics"}, train.Outputs)

	serving, ok := def.Step("serving")
	require.True(t, ok)
	assert.Equal(t, "default_model", serving.Models[0].Key)
	assert.Equal(t, "default_model", def.Arguments().Get("model_name"))
}

func TestDefinitionRoundTripKeepsParamTypes(t *testing.T) {
	t.Parallel()

	pipe := newPipe(t)

	_, err := pipeline.AddRunStep(pipe, "trainer", "trainer",
		pipeline.StepParams(model.Params{"ratio": 1.0, "split": 0.2, "epochs": 3, "shuffle": true}),
		pipeline.StepOutputs("model"),
	)
	require.NoError(t, err)

	def, err := pipe.Compile(pipeline.Arguments{"dataset_uri": "s3://bucket/data.csv"})
	require.NoError(t, err)

	for name, write := range map[string]func(*bytes.Buffer) error{
		"yaml": func(buf *bytes.Buffer) error { return def.WriteYAML(buf) },
		"json": func(buf *bytes.Buffer) error { return def.WriteJSON(buf) },
	} {
		buf := &bytes.Buffer{}
		require.NoError(t, write(buf), name)

		loaded, err := pipeline.LoadDefinition(buf)
		require.NoError(t, err, name)
		assert.Equal(t, def.Steps(), loaded.Steps(), name)
	}
}
