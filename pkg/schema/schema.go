// Package schema turns source column dtypes into feature group column
// schemas and loads schema definitions from YAML files.
package schema

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/models"
)

// DefaultFeatureType is used for any dtype without an explicit mapping.
const DefaultFeatureType = models.FeatureTypeString

var dtypeMapping = map[string]models.FeatureType{
	"float": models.FeatureTypeFractional,
	"long":  models.FeatureTypeIntegral,
}

// FeatureTypeFor maps a source dtype to a feature type. Only "float" and
// "long" have mappings; everything else is a string feature.
func FeatureTypeFor(dtype string) models.FeatureType {
	if t, ok := dtypeMapping[strings.ToLower(strings.TrimSpace(dtype))]; ok {
		return t
	}
	return DefaultFeatureType
}

// SourceColumn is a column as declared by the data source.
type SourceColumn struct {
	Name  string `yaml:"name"`
	DType string `yaml:"type"`
}

// Definition is the on-disk schema file.
type Definition struct {
	RecordIdentifier string         `yaml:"record_identifier"`
	EventTime        string         `yaml:"event_time"`
	Columns          []SourceColumn `yaml:"columns"`
}

// Columns converts source columns into feature group columns, keeping order.
func Columns(src []SourceColumn) ([]models.ColumnSchema, error) {
	var result *multierror.Error
	out := make([]models.ColumnSchema, 0, len(src))
	seen := make(map[string]struct{}, len(src))
	for i, c := range src {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			result = multierror.Append(result, fmt.Errorf("column %d has no name", i))
			continue
		}
		if _, dup := seen[name]; dup {
			result = multierror.Append(result, fmt.Errorf("column %q is declared more than once", name))
			continue
		}
		seen[name] = struct{}{}
		out = append(out, models.ColumnSchema{Name: name, Type: FeatureTypeFor(c.DType)})
	}
	return out, result.ErrorOrNil()
}

// Load reads a schema definition from a YAML file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a schema definition from YAML.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	if len(def.Columns) == 0 {
		return nil, fmt.Errorf("schema declares no columns")
	}
	return &def, nil
}

// FeatureColumns returns the definition's columns as feature group columns.
func (d *Definition) FeatureColumns() ([]models.ColumnSchema, error) {
	return Columns(d.Columns)
}
