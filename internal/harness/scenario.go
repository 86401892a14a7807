package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/skein/internal/knot"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// SessionToken is an optional fixed session token.
	// If empty, defaults to testutil.DefaultSessionToken.
	SessionToken string `yaml:"session_token,omitempty"`

	// Batches are applied in order.
	Batches []BatchStep `yaml:"batches"`

	// Expect validates the final state. Unset fields are not checked.
	Expect Expect `yaml:"expect"`

	// dir resolves file steps; set by LoadScenario.
	dir string
}

// Step kinds.
const (
	StepBatch  = "batch"
	StepFile   = "file"
	StepSelect = "select"
)

// BatchStep is one entry of a scenario's batches list.
// Exactly one of Inline, File, and Select is set.
type BatchStep struct {
	Inline *yaml.Node
	File   string
	Select *SelectStep
}

// SelectStep makes Child the selected child of Parent.
type SelectStep struct {
	Parent int64 `yaml:"parent"`
	Child  int64 `yaml:"child"`
}

// Kind returns the step kind.
func (b BatchStep) Kind() string {
	switch {
	case b.File != "":
		return StepFile
	case b.Select != nil:
		return StepSelect
	default:
		return StepBatch
	}
}

// UnmarshalYAML sorts a step into its kind. A mapping with a single "file"
// or "select" key is that step; any other mapping is an inline batch and is
// validated later against the batch schema.
func (b *BatchStep) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: batch step must be a mapping", node.Line)
	}

	keys := make(map[string]*yaml.Node, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keys[node.Content[i].Value] = node.Content[i+1]
	}

	if v, ok := keys["file"]; ok {
		if len(keys) != 1 {
			return fmt.Errorf("line %d: a file step takes no other keys", node.Line)
		}
		if err := v.Decode(&b.File); err != nil {
			return fmt.Errorf("line %d: file: %w", node.Line, err)
		}
		if b.File == "" {
			return fmt.Errorf("line %d: file must not be empty", node.Line)
		}
		return nil
	}

	if v, ok := keys["select"]; ok {
		if len(keys) != 1 {
			return fmt.Errorf("line %d: a select step takes no other keys", node.Line)
		}
		var sel SelectStep
		if err := decodeStrict(v, &sel); err != nil {
			return fmt.Errorf("line %d: select: %w", node.Line, err)
		}
		b.Select = &sel
		return nil
	}

	b.Inline = node
	return nil
}

// decodeStrict decodes node rejecting unknown fields. yaml.Node.Decode does
// not inherit the outer decoder's KnownFields setting.
func decodeStrict(node *yaml.Node, out any) error {
	data, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(out)
}

// Expect holds the expected final state. Pointer and map fields left unset
// in the YAML are not checked.
type Expect struct {
	DisplayPath    *[]int64         `yaml:"display_path,omitempty"`
	Labels         *[]LabelExpect   `yaml:"labels,omitempty"`
	TreeCategories map[int64]string `yaml:"tree_categories,omitempty"`
	SelfCategories map[int64]string `yaml:"self_categories,omitempty"`
	Totals         *TotalsExpect    `yaml:"totals,omitempty"`
	Issues         *[]string        `yaml:"issues,omitempty"`
	Violations     *[]string        `yaml:"violations,omitempty"`
	Title          *string          `yaml:"title,omitempty"`
	Knots          *int             `yaml:"knots,omitempty"`
}

// LabelExpect is one expected label index row.
type LabelExpect struct {
	Label string `yaml:"label"`
	ID    int64  `yaml:"id"`
}

// TotalsExpect is the expected per-category knot count.
type TotalsExpect struct {
	OK      int `yaml:"ok"`
	New     int `yaml:"new"`
	Error   int `yaml:"error"`
	Invalid int `yaml:"invalid"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario parses scenario YAML. dir resolves relative file steps.
func ParseScenario(data []byte, dir string) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	scenario.dir = dir

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// resolve returns a file step's path relative to the scenario directory.
func (s *Scenario) resolve(path string) string {
	if filepath.IsAbs(path) || s.dir == "" {
		return path
	}
	return filepath.Join(s.dir, path)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Batches) == 0 {
		return fmt.Errorf("batches list is required and must be non-empty")
	}

	for i, step := range s.Batches {
		if step.Kind() != StepFile {
			continue
		}
		if _, err := os.Stat(s.resolve(step.File)); os.IsNotExist(err) {
			return fmt.Errorf("batches[%d]: batch file not found: %s", i, step.File)
		}
	}

	for id, c := range s.Expect.TreeCategories {
		if !knot.Category(c).Valid() {
			return fmt.Errorf("expect.tree_categories[%d]: unknown category %q", id, c)
		}
	}
	for id, c := range s.Expect.SelfCategories {
		if !knot.Category(c).Valid() {
			return fmt.Errorf("expect.self_categories[%d]: unknown category %q", id, c)
		}
	}

	return nil
}
