// Package recipe reads transformation recipes (Data Wrangler .flow files)
// and derives the deterministic names a pipeline run uses.
package recipe

import (
	"fmt"
	"os"
	"path"

	"github.com/goccy/go-json"

	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/apperrors"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/jsonutil"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/models"
)

// Node types that matter to a run.
const (
	NodeTypeSource    = "SOURCE"
	NodeTypeTransform = "TRANSFORM"
)

// ProcessingRoot is where job inputs are mounted inside the container.
const ProcessingRoot = "/opt/ml/processing"

var (
	datasetNamePath = []string{"dataset_definition", "name"}
	datasetURIPath  = []string{"dataset_definition", "s3ExecutionContext", "s3Uri"}
)

// Flow is a parsed recipe. Fields the pipeline does not inspect are kept
// raw so a rewritten recipe round-trips them.
type Flow struct {
	Metadata json.RawMessage `json:"metadata,omitempty"`
	Nodes    []Node          `json:"nodes"`
}

// Node is one step of the recipe graph.
type Node struct {
	NodeID            string          `json:"node_id"`
	Type              string          `json:"type"`
	Operator          string          `json:"operator"`
	Parameters        map[string]any  `json:"parameters,omitempty"`
	TrainedParameters json.RawMessage `json:"trained_parameters,omitempty"`
	Inputs            []NodeInput     `json:"inputs"`
	Outputs           []NodeOutput    `json:"outputs"`
}

// NodeInput references the output of an upstream node.
type NodeInput struct {
	Name       string `json:"name"`
	NodeID     string `json:"node_id"`
	OutputName string `json:"output_name"`
}

// NodeOutput names one output of a node.
type NodeOutput struct {
	Name string `json:"name"`
}

// Source is a dataset a recipe reads.
type Source struct {
	NodeID string
	Name   string
	URI    string
}

// Load reads and parses a recipe file.
func Load(filePath string) (*Flow, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe %s: %w", filePath, err)
	}
	return Parse(data)
}

// Parse decodes a recipe document.
func Parse(data []byte) (*Flow, error) {
	var f Flow
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, apperrors.ConfigurationError("recipe is not valid JSON: %v", err)
	}
	if len(f.Nodes) == 0 {
		return nil, apperrors.ConfigurationError("recipe has no nodes")
	}
	return &f, nil
}

// Bytes encodes the recipe for upload.
func (f *Flow) Bytes() ([]byte, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("failed to encode recipe: %w", err)
	}
	return b, nil
}

// Sources lists the datasets the recipe reads in node order.
func (f *Flow) Sources() []Source {
	var out []Source
	for _, n := range f.Nodes {
		if n.Type != NodeTypeSource {
			continue
		}
		out = append(out, Source{
			NodeID: n.NodeID,
			Name:   jsonutil.LookupString(n.Parameters, datasetNamePath...),
			URI:    jsonutil.LookupString(n.Parameters, datasetURIPath...),
		})
	}
	return out
}

// RewriteSources points each source whose dataset name is a key of uris at
// the mapped location. It returns how many sources changed.
func (f *Flow) RewriteSources(uris map[string]string) int {
	changed := 0
	for _, n := range f.Nodes {
		if n.Type != NodeTypeSource {
			continue
		}
		uri, ok := uris[jsonutil.LookupString(n.Parameters, datasetNamePath...)]
		if !ok {
			continue
		}
		if jsonutil.SetString(n.Parameters, uri, datasetURIPath...) {
			changed++
		}
	}
	return changed
}

// DefaultOutputName is the default output of the last transform node,
// which is what the export step writes when no output is configured.
func (f *Flow) DefaultOutputName() (string, error) {
	for i := len(f.Nodes) - 1; i >= 0; i-- {
		n := f.Nodes[i]
		if n.Type != NodeTypeTransform {
			continue
		}
		output := "default"
		if len(n.Outputs) > 0 && n.Outputs[0].Name != "" {
			output = n.Outputs[0].Name
		}
		return n.NodeID + "." + output, nil
	}
	return "", apperrors.ConfigurationError("recipe has no transform node to export")
}

// JobInputs maps each source to a mount under ProcessingRoot. Sources
// without a name or location are skipped.
func (f *Flow) JobInputs() []models.JobInput {
	var inputs []models.JobInput
	for _, s := range f.Sources() {
		if s.Name == "" || s.URI == "" {
			continue
		}
		inputs = append(inputs, models.JobInput{
			Name:      s.Name,
			SourceURI: s.URI,
			LocalPath: path.Join(ProcessingRoot, s.Name),
		})
	}
	return inputs
}
