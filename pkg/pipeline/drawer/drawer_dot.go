package drawer

import (
	"fmt"
	"io"
	"sort"
	"text/template"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
	"gopkg.in/go-playground/colors.v1" //nolint

	"github.com/askiada/go-workflow/internal/store"
	"github.com/askiada/go-workflow/pkg/pipeline/measure"
)

// DOTDrawer is a drawer that writes the pipeline graph in the Graphviz DOT language.
type DOTDrawer struct {
	store *store.MemoryStore[string, string]
	graph graph.Graph[string, string]
}

// NewDOTDrawer creates a new DOT drawer.
func NewDOTDrawer() *DOTDrawer {
	s := store.New[string, string]()

	return &DOTDrawer{
		store: s,
		graph: graph.NewWithStore(graph.StringHash, graph.Store[string, string](s), graph.Directed()),
	}
}

const (
	startKind = "start"
	endKind   = "end"
)

var shapes = map[string]string{
	"run":     "box",
	"deploy":  "component",
	startKind: "circle",
	endKind:   "doublecircle",
}

// AddStep adds a step to the pipeline graph. Start and end vertices are labelled with their kind.
func (d *DOTDrawer) AddStep(name, kind string) error {
	shape, ok := shapes[kind]
	if !ok {
		shape = "ellipse"
	}

	attributes := map[string]string{"shape": shape}
	if kind == startKind || kind == endKind {
		attributes["label"] = kind
	}

	err := d.graph.AddVertex(name, graph.VertexAttributes(attributes))
	if err != nil {
		return errors.Wrapf(err, "unable to add vertex %s", name)
	}

	return nil
}

// AddLink adds a link between parent and child steps. Adding the same link twice is a no-op.
func (d *DOTDrawer) AddLink(parentName, childName, label string) error {
	var opts []func(*graph.EdgeProperties)
	if label != "" {
		opts = append(opts, graph.EdgeAttribute("label", label))
	}

	err := d.graph.AddEdge(parentName, childName, opts...)
	if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
		return errors.Wrapf(err, "unable to add edge from %s to %s", parentName, childName)
	}

	return nil
}

// Sinks returns the steps nothing depends on, sorted.
func (d *DOTDrawer) Sinks() ([]string, error) {
	vertices, err := d.store.ListVertices()
	if err != nil {
		return nil, errors.Wrap(err, "unable to list vertices")
	}

	sinks := []string{}
	for _, vertex := range vertices {
		succs, err := d.store.Successors(vertex)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to list successors of %s", vertex)
		}

		if len(succs) == 0 {
			sinks = append(sinks, vertex)
		}
	}

	return sinks, nil
}

// Draw writes the pipeline graph.
func (d *DOTDrawer) Draw(wrt io.Writer) error {
	desc, err := d.generateDOT()
	if err != nil {
		return errors.Wrap(err, "unable to generate DOT description")
	}

	return renderDOT(wrt, desc)
}

// SetTotalTime sets the total time for the step.
func (d *DOTDrawer) SetTotalTime(stepName string, totalTime time.Duration) error {
	err := d.store.UpdateVertex(stepName, func(properties *graph.VertexProperties) {
		properties.Attributes["xlabel"] = measure.Round(totalTime).String()
	})
	if err != nil {
		return errors.Wrapf(err, "unable to update vertex %s", stepName)
	}

	return nil
}

const maxRGB = 240

// AddMeasure labels every step with its average duration and colours it from blue (fastest)
// to red (slowest).
func (d *DOTDrawer) AddMeasure(msr measure.Measure) error {
	durations := make(map[string]time.Duration)

	var minValue, maxValue time.Duration

	first := true

	for name, mt := range msr.AllMetrics() {
		if name == measure.TotalStepName || mt.Runs() == 0 {
			continue
		}

		if _, _, err := d.store.Vertex(name); err != nil {
			continue
		}

		avg := mt.AVGDuration()
		durations[name] = avg

		if first || avg < minValue {
			minValue = avg
		}

		if first || avg > maxValue {
			maxValue = avg
		}

		first = false
	}

	for name, avg := range durations {
		fraction := 1.0
		if maxValue > minValue {
			fraction = float64(avg-minValue) / float64(maxValue-minValue)
		}

		red := maxRGB * fraction
		blue := maxRGB - red

		colour, err := colors.RGB(uint8(red), 0, uint8(blue)) //nolint
		if err != nil {
			return errors.Wrap(err, "unable to get colour")
		}

		label := avg.String()
		if failures := msr.GetMetric(name).Failures(); failures > 0 {
			label += fmt.Sprintf(", failed: %d", failures)
		}

		err = d.store.UpdateVertex(name, func(properties *graph.VertexProperties) {
			properties.Attributes["xlabel"] = label
			properties.Attributes["color"] = colour.ToHEX().String()
		})
		if err != nil {
			return errors.Wrapf(err, "unable to update vertex %s", name)
		}
	}

	return nil
}

//nolint:lll //this is a template
const dotTemplate = `strict {{.GraphType}} {
	{{range $k, $v := .Attributes}}
		{{$k}}="{{$v}}";
	{{end}}
	{{range $s := .Statements}}
		"{{.Source}}" {{if .Target}}{{$.EdgeOperator}} "{{.Target}}" [ {{range $k, $v := .EdgeAttributes}}{{$k}}="{{$v}}", {{end}} weight={{.EdgeWeight}} ]{{else}}[ {{range $k, $v := .HTMLAttributes}}{{$k}}={{$v}}, {{end}} {{range $k, $v := .SourceAttributes}}{{$k}}="{{$v}}", {{end}} weight={{.SourceWeight}} ]{{end}};
	{{end}}
	}
	`

type description struct {
	GraphType    string
	Attributes   map[string]string
	EdgeOperator string
	Statements   []statement
}

type statement struct {
	Source           interface{}
	Target           interface{}
	SourceAttributes map[string]string
	HTMLAttributes   map[string]string
	EdgeAttributes   map[string]string
	SourceWeight     int
	EdgeWeight       int
}

// generateDOT lists vertices and their outgoing edges in a stable order.
func (d *DOTDrawer) generateDOT() (description, error) {
	desc := description{
		GraphType:    "digraph",
		Attributes:   map[string]string{"rankdir": "LR"},
		EdgeOperator: "->",
		Statements:   make([]statement, 0),
	}

	vertices, err := d.store.ListVertices()
	if err != nil {
		return desc, errors.Wrap(err, "unable to list vertices")
	}

	for _, vertex := range vertices {
		_, sourceProperties, err := d.store.Vertex(vertex)
		if err != nil {
			return desc, errors.Wrap(err, "unable to get vertex properties")
		}

		attributes := make(map[string]string, len(sourceProperties.Attributes))
		htmlAttributes := make(map[string]string)

		display, ok := sourceProperties.Attributes["label"]
		if !ok {
			display = vertex
		}

		_, measured := sourceProperties.Attributes["xlabel"]

		for key, value := range sourceProperties.Attributes {
			switch {
			case key == "xlabel":
				htmlAttributes["label"] = fmt.Sprintf(`<%s <BR /> <FONT POINT-SIZE="12">%s</FONT>>`, display, value)
			case key == "label" && measured:
			default:
				attributes[key] = value
			}
		}

		desc.Statements = append(desc.Statements, statement{
			Source:           vertex,
			SourceWeight:     sourceProperties.Weight,
			SourceAttributes: attributes,
			HTMLAttributes:   htmlAttributes,
		})

		targets, err := d.store.Successors(vertex)
		if err != nil {
			return desc, errors.Wrap(err, "unable to list successors")
		}

		sort.Strings(targets)

		for _, target := range targets {
			edge, err := d.store.Edge(vertex, target)
			if err != nil {
				return desc, errors.Wrap(err, "unable to get edge")
			}

			desc.Statements = append(desc.Statements, statement{
				Source:         vertex,
				Target:         target,
				EdgeWeight:     edge.Properties.Weight,
				EdgeAttributes: edge.Properties.Attributes,
			})
		}
	}

	return desc, nil
}

func renderDOT(wrt io.Writer, desc description) error {
	tpl, err := template.New("dotTemplate").Parse(dotTemplate)
	if err != nil {
		return errors.Wrap(err, "failed to parse template")
	}

	err = tpl.Execute(wrt, desc)
	if err != nil {
		return errors.Wrap(err, "unable to execute template")
	}

	return nil
}

var _ Drawer = (*DOTDrawer)(nil)
