package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/askiada/go-workflow/pkg/iris"
	"github.com/askiada/go-workflow/pkg/pipeline"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	stdout := &bytes.Buffer{}
	cmd := newRootCmd(&bytes.Buffer{})
	cmd.SetOut(stdout)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return stdout.String(), err
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := loadConfig(newViper(), "")
	require.NoError(t, err)

	assert.Equal(t, iris.DefaultModelName, cfg.Pipeline.ModelName)
	assert.Equal(t, yamlFormat, cfg.Output.Format)
	assert.Equal(t, stdoutPath, cfg.Output.Path)
	assert.Equal(t, 1, cfg.Run.Concurrency)
	assert.Equal(t, defaultLogLvl, cfg.Log.Level)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "workflow.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(`pipeline:
  dataset_uri: s3://bucket/iris.csv
  model_name: from_file
output:
  format: JSON
run:
  concurrency: 2
`), 0o600))

	t.Setenv("WORKFLOW_PIPELINE_MODEL_NAME", "from_env")

	cfg, err := loadConfig(newViper(), cfgFile)
	require.NoError(t, err)

	assert.Equal(t, "s3://bucket/iris.csv", cfg.Pipeline.DatasetURI)
	assert.Equal(t, "from_env", cfg.Pipeline.ModelName)
	assert.Equal(t, jsonFormat, cfg.Output.Format)
	assert.Equal(t, 2, cfg.Run.Concurrency)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Parallel()

	_, err := loadConfig(newViper(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	v := newViper()
	v.Set("output.format", "toml")
	_, err = loadConfig(v, "")
	assert.ErrorContains(t, err, "unknown output format")

	v = newViper()
	v.Set("run.concurrency", 0)
	_, err = loadConfig(v, "")
	assert.ErrorContains(t, err, "run concurrency")
}

func TestCompileCmd(t *testing.T) {
	t.Parallel()

	dotFile := filepath.Join(t.TempDir(), "iris.dot")

	out, err := execute(t, "compile", "--dataset-uri", "s3://bucket/iris.csv", "--model-name", "m1", "--dot", dotFile)
	require.NoError(t, err)

	doc := map[string]interface{}{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, iris.PipelineName, doc["name"])
	assert.Equal(t, map[string]interface{}{
		iris.DatasetURIParam: "s3://bucket/iris.csv",
		iris.ModelNameParam:  "m1",
	}, doc["arguments"])

	dot, err := os.ReadFile(dotFile)
	require.NoError(t, err)
	assert.Contains(t, string(dot), `"trainer" -> "serving"`)
}

func TestCompileCmdMissingDataset(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "compile")
	assert.ErrorIs(t, err, pipeline.ErrMissingParameter)
}

func TestRunCmd(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "run", "--dataset-uri", "s3://bucket/iris.csv", "--artifact-root", "s3://artifacts")
	require.NoError(t, err)

	assert.Contains(t, out, "STEP")
	assert.Regexp(t, `trainer\s+\S+\s+model=s3://artifacts/\S+/trainer/model`, out)
	assert.Contains(t, out, "serving")
	assert.Contains(t, out, "total")
}

func TestRunCmdFromDefinition(t *testing.T) {
	t.Parallel()

	defFile := filepath.Join(t.TempDir(), "iris.json")

	_, err := execute(t, "compile", "--dataset-uri", "s3://bucket/iris.csv", "--format", "json", "-o", defFile)
	require.NoError(t, err)

	out, err := execute(t, "run", "--definition", defFile, "--artifact-root", "/tmp/artifacts")
	require.NoError(t, err)
	assert.Regexp(t, `serving\s+\S+`, out)
	assert.Contains(t, out, "/tmp/artifacts/")
}
