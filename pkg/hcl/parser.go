package hcl

import (
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"

	"github.com/airmood/go-exposure-timeline/pkg/exposure"
	"github.com/airmood/go-exposure-timeline/pkg/temporal"
)

// HCLAnalysis represents a top-level analysis document
type HCLAnalysis struct {
	StudyID            string        `hcl:"study_id"`
	Granularity        *string       `hcl:"granularity,optional"`
	Movement           *HCLMovement  `hcl:"movement,block"`
	Mood               *HCLMood      `hcl:"mood,block"`
	Pairs              []HCLPair     `hcl:"pair,block"`
	TimeRange          *HCLTimeRange `hcl:"time_range,block"`
	TolerantTimestamps *bool         `hcl:"tolerant_timestamps,optional"`
	ProcessingMode     *string       `hcl:"processing_mode,optional"`
	Windowed           *bool         `hcl:"windowed,optional"`
}

// HCLMovement configures trajectory enrichment
type HCLMovement struct {
	Profile   *string `hcl:"profile,optional"`
	SpeedMode *string `hcl:"speed_mode,optional"`
	Filter    *string `hcl:"filter,optional"`
}

// HCLMood overrides the affect item lists for the two composite axes
type HCLMood struct {
	PositiveItems []string `hcl:"positive_items,optional"`
	NegativeItems []string `hcl:"negative_items,optional"`
}

// HCLPair selects one pollutant/axis combination to correlate; leaving all
// pair blocks out requests the full grid
type HCLPair struct {
	Pollutant string `hcl:"pollutant"`
	Axis      string `hcl:"axis"`
}

// HCLTimeRange bounds the analysis to part of the stored series
type HCLTimeRange struct {
	Start string `hcl:"start"`
	End   string `hcl:"end"`
}

// AnalysisConfig is a fully decoded analysis document: the workflow request
// plus the ingestion options the CLI applies when loading data files
type AnalysisConfig struct {
	Request  temporal.AnalysisRequest
	Tolerant bool
}

// ParseHCLAnalysis parses HCL content into an analysis configuration
func ParseHCLAnalysis(content []byte) (*AnalysisConfig, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(content, "analysis.hcl")
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL: %s", diags.Error())
	}

	return parseAnalysisFromFile(file)
}

// parseAnalysisFromFile decodes an analysis document from a parsed HCL file
func parseAnalysisFromFile(file *hcl.File) (*AnalysisConfig, error) {
	var doc HCLAnalysis
	diags := gohcl.DecodeBody(file.Body, analysisEvalContext(), &doc)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL body: %s", diags.Error())
	}

	return convertHCLAnalysis(&doc)
}

// analysisEvalContext builds the evaluation context for analysis documents.
// timestamp(...) passes its argument through unchanged; it exists so time
// literals read as times rather than bare strings.
func analysisEvalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{},
		Functions: map[string]function.Function{
			"timestamp": function.New(&function.Spec{
				Params: []function.Parameter{
					{
						Name: "timestamp",
						Type: cty.String,
					},
				},
				Type: function.StaticReturnType(cty.String),
				Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
					return args[0], nil
				},
			}),
		},
	}
}

// convertHCLAnalysis maps the decoded document onto a temporal.AnalysisRequest
func convertHCLAnalysis(doc *HCLAnalysis) (*AnalysisConfig, error) {
	config := &AnalysisConfig{
		Request: temporal.AnalysisRequest{StudyID: doc.StudyID},
	}

	if doc.Granularity != nil {
		config.Request.Granularity = *doc.Granularity
	}

	if doc.Movement != nil {
		if doc.Movement.Profile != nil {
			config.Request.Profile = *doc.Movement.Profile
		}
		if doc.Movement.SpeedMode != nil {
			config.Request.SpeedMode = *doc.Movement.SpeedMode
		}
		if doc.Movement.Filter != nil {
			config.Request.MovementFilter = *doc.Movement.Filter
		}
	}

	if doc.Mood != nil {
		config.Request.PositiveItems = doc.Mood.PositiveItems
		config.Request.NegativeItems = doc.Mood.NegativeItems
	}

	for _, pair := range doc.Pairs {
		config.Request.Pairs = append(config.Request.Pairs, exposure.SeriesPair{
			Pollutant: pair.Pollutant,
			Axis:      pair.Axis,
		})
	}

	if doc.TimeRange != nil {
		start, err := time.Parse(time.RFC3339, doc.TimeRange.Start)
		if err != nil {
			return nil, fmt.Errorf("failed to parse start time: %w", err)
		}

		end, err := time.Parse(time.RFC3339, doc.TimeRange.End)
		if err != nil {
			return nil, fmt.Errorf("failed to parse end time: %w", err)
		}

		config.Request.TimeRange = &temporal.TimeRange{Start: start, End: end}
	}

	if doc.ProcessingMode != nil {
		config.Request.ProcessingMode = *doc.ProcessingMode
	}
	if doc.Windowed != nil {
		config.Request.IncludeWindowed = *doc.Windowed
	}
	if doc.TolerantTimestamps != nil {
		config.Tolerant = *doc.TolerantTimestamps
	}

	return config, nil
}

// IsHCL attempts to detect if the given content is in HCL format
func IsHCL(content []byte) bool {
	_, err := hclsyntax.ParseConfig(content, "", hcl.Pos{Line: 1, Column: 1})
	return err == nil
}
