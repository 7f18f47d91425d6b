package routerules

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/pelletier/go-toml/v2"
	ctyjson "github.com/zclconf/go-cty/cty/json"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
	"gopkg.in/yaml.v3"
)

// LoadFile reads a rule table from a file, choosing the format by extension: .hcl, .yaml,
// .yml, .toml or .json. Rules are returned in the order they are declared.
func LoadFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rules []Rule
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".hcl":
		rules, err = ParseHCL(data, path)
	case ".yaml", ".yml":
		rules, err = ParseYAML(data)
	case ".toml":
		rules, err = ParseTOML(data)
	case ".json":
		rules, err = ParseJSON(data)
	default:
		return nil, fmt.Errorf("unsupported route rules file type %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load route rules from %s: %w", path, err)
	}
	return rules, nil
}

var hclRulesSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "rule", LabelNames: []string{"pattern"}},
	},
}

// ParseHCL decodes rule blocks. Every attribute inside a block becomes a key of the rule's
// metadata object:
//
//	rule "/blog/**" {
//	  prerender = true
//	  headers   = { "cache-control" = "s-maxage=60" }
//	}
func ParseHCL(data []byte, filename string) ([]Rule, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, diags
	}
	content, diags := file.Body.Content(hclRulesSchema)
	if diags.HasErrors() {
		return nil, diags
	}

	rules := make([]Rule, 0, len(content.Blocks))
	for _, block := range content.Blocks {
		attrs, attrDiags := block.Body.JustAttributes()
		diags = append(diags, attrDiags...)
		if attrDiags.HasErrors() {
			continue
		}
		metadata := ldvalue.ObjectBuild()
		for name, attr := range attrs {
			val, valDiags := attr.Expr.Value(nil)
			diags = append(diags, valDiags...)
			if valDiags.HasErrors() {
				continue
			}
			encoded, err := ctyjson.Marshal(val, val.Type())
			if err != nil {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Unsupported metadata value",
					Detail:   fmt.Sprintf("Attribute %q cannot be represented as JSON: %s", name, err),
					Subject:  attr.Expr.Range().Ptr(),
				})
				continue
			}
			metadata.Set(name, ldvalue.Parse(encoded))
		}
		rule := Rule{Pattern: block.Labels[0], Metadata: ldvalue.Null()}
		if len(attrs) > 0 {
			rule.Metadata = metadata.Build()
		}
		rules = append(rules, rule)
	}
	if diags.HasErrors() {
		return nil, diags
	}
	return rules, nil
}

type rawRule struct {
	Pattern  string      `json:"pattern" yaml:"pattern" toml:"pattern"`
	Metadata interface{} `json:"metadata" yaml:"metadata" toml:"metadata"`
}

func (r rawRule) toRule() (Rule, error) {
	if r.Metadata == nil {
		return Rule{Pattern: r.Pattern, Metadata: ldvalue.Null()}, nil
	}
	data, err := json.Marshal(r.Metadata)
	if err != nil {
		return Rule{}, fmt.Errorf("metadata for %q: %w", r.Pattern, err)
	}
	return Rule{Pattern: r.Pattern, Metadata: ldvalue.Parse(data)}, nil
}

func convertRawRules(raw []rawRule) ([]Rule, error) {
	rules := make([]Rule, 0, len(raw))
	for _, r := range raw {
		rule, err := r.toRule()
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// ParseYAML decodes a top-level "rules" sequence of {pattern, metadata} mappings.
func ParseYAML(data []byte) ([]Rule, error) {
	var doc struct {
		Rules []rawRule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return convertRawRules(doc.Rules)
}

// ParseTOML decodes an array of [[rule]] tables, each with a pattern and a metadata table.
func ParseTOML(data []byte) ([]Rule, error) {
	var doc struct {
		Rules []rawRule `toml:"rule"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return convertRawRules(doc.Rules)
}

// ParseJSON decodes an array of {"pattern": ..., "metadata": ...} objects.
func ParseJSON(data []byte) ([]Rule, error) {
	var rules []Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}
