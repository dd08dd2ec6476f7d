// Package pipeline provides a way to declare machine-learning pipelines as typed Go code.
//
// A pipeline is a named, parameterized directed graph of steps. Each step invokes a function
// implemented elsewhere (a trainer, a model server) with named inputs, a bag of scalar
// parameters and a set of declared outputs. Steps are linked through artifact references:
// a step consuming the output of another one depends on it.
//
// Declaring a pipeline performs no I/O. References are checked as soon as a step is added,
// so a step pointing to an output no previous step declares is reported at declaration time
// rather than when an orchestrator executes the pipeline. Compiling a pipeline produces an
// immutable Definition, which can be written as YAML or JSON for an external orchestrator,
// drawn as a graph, or rehearsed in-process with a Runner and explicitly injected components.
package pipeline
