package pipeline

import (
	"regexp"

	"github.com/pkg/errors"
)

var (
	ErrPipelineMustBeSet   = errors.New("p must be set")
	ErrDefinitionMustBeSet = errors.New("definition must be set")
	ErrNameMustBeSet       = errors.New("name must be set")
	ErrFunctionMustBeSet   = errors.New("function must be set")
	ErrBuildMustBeSet      = errors.New("build function must be set")
	ErrPipelineCompiled    = errors.New("pipeline is already compiled")
	ErrInvalidName         = errors.New("name must start with a letter or a digit and contain only letters, digits, '-' or '_'")
	ErrDuplicateStep       = errors.New("step already declared")
	ErrDuplicateOutput     = errors.New("output already declared")
	ErrDuplicateParameter  = errors.New("parameter already declared")
	ErrDuplicateModel      = errors.New("model key already declared")
	ErrDuplicateComponent  = errors.New("component already registered")
	ErrInvalidParam        = errors.New("invalid step parameter")
	ErrInvalidReference    = errors.New("invalid artifact reference")
	ErrDanglingReference   = errors.New("reference to an output no previous step declares")
	ErrNoModels            = errors.New("deploy step needs at least one model")
	ErrInvalidModel        = errors.New("model needs a key, a model path and a class name")
	ErrUnknownParameter    = errors.New("unknown pipeline parameter")
	ErrMissingParameter    = errors.New("missing required pipeline parameter")
	ErrInconsistentDeps    = errors.New("declared dependencies do not match the step references")
	ErrComponentNotFound   = errors.New("no component implements the function")
	ErrMissingOutput       = errors.New("component did not produce a declared output")
)

var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

func checkName(kind, name string) error {
	if name == "" {
		return errors.Wrap(ErrNameMustBeSet, kind)
	}

	if !validName.MatchString(name) {
		return errors.Wrapf(ErrInvalidName, "%s %q", kind, name)
	}

	return nil
}
