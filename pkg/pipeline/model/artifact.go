package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrInvalidArtifactRef is returned when a string cannot be parsed as an artifact reference.
var ErrInvalidArtifactRef = errors.New("invalid artifact reference")

// RefKind tells where the data behind an artifact reference comes from.
type RefKind string

const (
	// URIRefKind points to data that lives outside the pipeline, e.g. a dataset in a bucket.
	URIRefKind RefKind = "uri"
	// OutputRefKind points to an output declared by another step of the same pipeline.
	OutputRefKind RefKind = "output"
)

const (
	placeholderOpen  = "{{"
	placeholderClose = "}}"
)

// ArtifactRef is an opaque handle to data produced by one step and consumed by another,
// or to data provided from outside the pipeline.
type ArtifactRef struct {
	Kind   RefKind
	URI    string
	Step   string
	Output string
}

// URI returns a reference to external data.
func URI(uri string) ArtifactRef {
	return ArtifactRef{Kind: URIRefKind, URI: uri}
}

// StepOutput returns a reference to the output of a step.
func StepOutput(step, output string) ArtifactRef {
	return ArtifactRef{Kind: OutputRefKind, Step: step, Output: output}
}

// IsZero reports whether the reference points to nothing.
func (r ArtifactRef) IsZero() bool {
	return r == ArtifactRef{}
}

// String returns the URI for external data, or a {{steps.<step>.outputs.<name>}} placeholder.
func (r ArtifactRef) String() string {
	if r.Kind == OutputRefKind {
		return fmt.Sprintf("%ssteps.%s.outputs.%s%s", placeholderOpen, r.Step, r.Output, placeholderClose)
	}

	return r.URI
}

// ParseArtifactRef is the inverse of ArtifactRef.String.
func ParseArtifactRef(s string) (ArtifactRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ArtifactRef{}, errors.Wrap(ErrInvalidArtifactRef, "empty reference")
	}

	if !strings.HasPrefix(s, placeholderOpen) {
		return URI(s), nil
	}

	if !strings.HasSuffix(s, placeholderClose) {
		return ArtifactRef{}, errors.Wrapf(ErrInvalidArtifactRef, "unterminated placeholder %q", s)
	}

	inner := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(s, placeholderOpen), placeholderClose))

	parts := strings.Split(inner, ".")
	if len(parts) != 4 || parts[0] != "steps" || parts[2] != "outputs" || parts[1] == "" || parts[3] == "" {
		return ArtifactRef{}, errors.Wrapf(ErrInvalidArtifactRef, "expected {{steps.<step>.outputs.<name>}}, got %q", s)
	}

	return StepOutput(parts[1], parts[3]), nil
}

func (r ArtifactRef) MarshalYAML() (interface{}, error) {
	return &yaml.Node{
		Kind:  yaml.ScalarNode,
		Value: r.String(),
		Style: yaml.DoubleQuotedStyle,
	}, nil
}

func (r *ArtifactRef) UnmarshalYAML(node *yaml.Node) error {
	expr := new(string)

	err := node.Decode(expr)
	if err != nil {
		return errors.Wrap(err, "unable to decode artifact reference")
	}

	ref, err := ParseArtifactRef(*expr)
	if err != nil {
		return err
	}

	*r = ref

	return nil
}

func (r ArtifactRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *ArtifactRef) UnmarshalJSON(b []byte) error {
	expr := new(string)

	err := json.Unmarshal(b, expr)
	if err != nil {
		return errors.Wrap(err, "unable to decode artifact reference")
	}

	ref, err := ParseArtifactRef(*expr)
	if err != nil {
		return err
	}

	*r = ref

	return nil
}
