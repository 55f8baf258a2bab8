package compiler

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/aretw0/rowflow/pkg/domain"
	"github.com/goccy/go-json"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// document is the on-disk shape of a schema. Variables stay a raw node so the
// declaration order of the mapping survives decoding.
type document struct {
	Name      string    `yaml:"name"`
	EndMarker string    `yaml:"end_marker"`
	Variables yaml.Node `yaml:"variables"`
}

// variableDocument uses "mapstructure" tags to match the YAML/JSON keys.
type variableDocument struct {
	Type           string                    `mapstructure:"type"`
	Optional       bool                      `mapstructure:"optional"`
	Skip           string                    `mapstructure:"skip"`
	Options        map[string]optionDocument `mapstructure:"options"`
	Min            *float64                  `mapstructure:"min"`
	Max            *float64                  `mapstructure:"max"`
	DependsOn      string                    `mapstructure:"depends_on"`
	DependentValue any                       `mapstructure:"dependent_value"`
	NoAnswerSkip   string                    `mapstructure:"no_answer_skip"`
	Computed       bool                      `mapstructure:"computed"`
	Enabling       string                    `mapstructure:"enabling"`
	FreeEntry      bool                      `mapstructure:"free_entry"`
	AutoFill       string                    `mapstructure:"auto_fill"`
}

type optionDocument struct {
	Skip string `mapstructure:"skip"`
}

// typeAliases accepts the historical spellings of the variable types.
var typeAliases = map[string]domain.VariableType{
	"":         domain.TypeText,
	"text":     domain.TypeText,
	"texto":    domain.TypeText,
	"options":  domain.TypeOptions,
	"opciones": domain.TypeOptions,
	"numeric":  domain.TypeNumeric,
	"numerico": domain.TypeNumeric,
	"filter":   domain.TypeFilter,
	"filtro":   domain.TypeFilter,
}

// Parser converts schema documents and rows into domain values.
type Parser struct{}

// NewParser creates a new parser instance.
func NewParser() *Parser {
	return &Parser{}
}

// ParseSchema decodes a YAML (or JSON) schema document.
func (p *Parser) ParseSchema(data []byte) (*domain.Schema, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}

	vars := &doc.Variables
	if vars.Kind == 0 {
		return nil, fmt.Errorf("schema has no variables")
	}
	if vars.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: variables must be a mapping", vars.Line)
	}

	schema := domain.NewSchema(doc.Name)
	schema.EndMarker = doc.EndMarker

	for i := 0; i+1 < len(vars.Content); i += 2 {
		key, body := vars.Content[i], vars.Content[i+1]

		v, err := decodeVariable(body)
		if err != nil {
			return nil, fmt.Errorf("line %d: variable %q: %w", key.Line, key.Value, err)
		}
		if err := schema.Add(key.Value, v); err != nil {
			return nil, fmt.Errorf("line %d: %w", key.Line, err)
		}
	}
	return schema, nil
}

func decodeVariable(node *yaml.Node) (domain.Variable, error) {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return domain.Variable{}, err
	}

	var doc variableDocument
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       optionShorthand,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &doc,
	})
	if err != nil {
		return domain.Variable{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return domain.Variable{}, err
	}

	return doc.toDomain()
}

// optionShorthand lets an option be written as its skip target ("1: v4").
func optionShorthand(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(optionDocument{}) || from.Kind() != reflect.String {
		return data, nil
	}
	return optionDocument{Skip: data.(string)}, nil
}

func (d variableDocument) toDomain() (domain.Variable, error) {
	t, ok := typeAliases[strings.ToLower(d.Type)]
	if !ok {
		return domain.Variable{}, fmt.Errorf("unknown type %q", d.Type)
	}

	v := domain.Variable{
		Type:              t,
		Optional:          d.Optional,
		UnconditionalSkip: d.Skip,
		Min:               d.Min,
		Max:               d.Max,
		DependentOn:       d.DependsOn,
		DependentValue:    d.DependentValue,
		NoAnswerSkip:      d.NoAnswerSkip,
		Computed:          d.Computed,
		FreeEntry:         d.FreeEntry,
	}
	if d.Options != nil {
		v.Options = make(map[string]domain.Option, len(d.Options))
		for key, opt := range d.Options {
			v.Options[key] = domain.Option{Skip: opt.Skip}
		}
	}
	if d.Enabling != "" {
		v.Enabling = domain.EnableBy(d.Enabling)
	}
	if d.AutoFill != "" {
		v.AutoFill = domain.FillBy(d.AutoFill)
	}
	return v, nil
}

// ParseRow decodes a JSON object into a row. JSON null means "no value".
func (p *Parser) ParseRow(data []byte) (domain.Row, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return domain.Row{}, nil
	}

	var row domain.Row
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, fmt.Errorf("failed to parse row: %w", err)
	}
	if row == nil {
		row = domain.Row{}
	}
	return row, nil
}
