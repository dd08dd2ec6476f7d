// Package model provides the data structures shared by the pipeline package and its options.
// It defines the pipeline specification, the step invocations with their artifact references,
// the model descriptors consumed by serving steps, and the hooks a pipeline option implements.
package model
