package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/papertrail/internal/model"
	"github.com/roach88/papertrail/internal/overlay"
)

// Scenario defines a client test scenario.
// Scenarios drive the client through user gestures against a seeded data
// set and assert on the resulting trace and final state.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Start is the location the client opens at. Defaults to "/".
	Start string `yaml:"start,omitempty"`

	// Fixtures is a path to a YAML data set. Relative paths resolve against
	// the scenario file. Empty uses the built-in data set.
	Fixtures string `yaml:"fixtures,omitempty"`

	// Flow contains the gestures, applied in order. The client settles
	// after each one.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace and state.
	// Supported types: location, history_len, call_count, call_order,
	// state_contains
	Assertions []Assertion `yaml:"assertions"`
}

// FlowStep is one user gesture. Exactly one gesture field must be set.
type FlowStep struct {
	// Input types into the mounted page's search box (debounced).
	Input *string `yaml:"input,omitempty"`

	// Submit searches the mounted page immediately.
	Submit *string `yaml:"submit,omitempty"`

	// Select picks a page search result by id.
	Select int64 `yaml:"select,omitempty"`

	// Compare toggles politicians into the comparison.
	Compare []int64 `yaml:"compare,omitempty"`

	// Exit leaves "detail" or "comparison".
	Exit string `yaml:"exit,omitempty"`

	// Key sends a key chord to the overlay (e.g. "ctrl+k").
	Key string `yaml:"key,omitempty"`

	// Palette types into the overlay (debounced).
	Palette *string `yaml:"palette,omitempty"`

	// Pick selects an overlay result as kind:id.
	Pick string `yaml:"pick,omitempty"`

	// Action runs an overlay action.
	Action string `yaml:"action,omitempty"`

	// Navigate pushes a location, as following a link would.
	Navigate string `yaml:"navigate,omitempty"`

	// Back moves one entry back in history.
	Back bool `yaml:"back,omitempty"`

	// Advance moves the manual clock, firing due debounce timers.
	Advance string `yaml:"advance,omitempty"`

	// Vote record controls of the selected politician.
	Page     int      `yaml:"page,omitempty"`
	Sort     string   `yaml:"sort,omitempty"`
	Types    []string `yaml:"types,omitempty"`
	Subjects []string `yaml:"subjects,omitempty"`
	Topic    *string  `yaml:"topic,omitempty"`

	// Expect optionally checks the step outcome.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies expected step behavior.
type ExpectClause struct {
	// Location is the address bar contents once the step settles.
	Location string `yaml:"location,omitempty"`

	// Error requires the gesture itself to be rejected.
	Error bool `yaml:"error,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "location": the final address bar contents equal Value
	// - "history_len": the address bar holds exactly Count entries
	// - "call_count": gateway operation Op was called exactly Count times
	// - "call_order": operations Ops were first called in this order
	// - "state_contains": the rendered final state contains Text
	Type string `yaml:"type"`

	Value string   `yaml:"value,omitempty"`
	Op    string   `yaml:"op,omitempty"`
	Ops   []string `yaml:"ops,omitempty"`
	Text  string   `yaml:"text,omitempty"`

	// Count is the expected number (used by history_len and call_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertLocation      = "location"
	AssertHistoryLen    = "history_len"
	AssertCallCount     = "call_count"
	AssertCallOrder     = "call_order"
	AssertStateContains = "state_contains"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Fixtures != "" && !filepath.IsAbs(scenario.Fixtures) {
		scenario.Fixtures = filepath.Join(filepath.Dir(path), scenario.Fixtures)
	}
	if scenario.Fixtures != "" {
		if _, err := os.Stat(scenario.Fixtures); err != nil {
			return nil, fmt.Errorf("invalid scenario: fixtures: %w", err)
		}
	}
	return scenario, nil
}

// ParseScenario parses and validates scenario YAML. Fixture paths are left
// as written.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Start != "" && !strings.HasPrefix(s.Start, "/") {
		return fmt.Errorf("start must be an absolute path, got %q", s.Start)
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i := range s.Flow {
		if err := validateStep(i, &s.Flow[i]); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateStep requires exactly one gesture and checks its argument.
func validateStep(index int, step *FlowStep) error {
	set := step.gestures()
	switch len(set) {
	case 0:
		return fmt.Errorf("flow[%d]: a gesture is required", index)
	case 1:
	default:
		return fmt.Errorf("flow[%d]: one gesture per step, got %s", index, strings.Join(set, ", "))
	}

	switch {
	case step.Advance != "":
		d, err := time.ParseDuration(step.Advance)
		if err != nil {
			return fmt.Errorf("flow[%d]: advance: %w", index, err)
		}
		if d < 0 {
			return fmt.Errorf("flow[%d]: advance must be non-negative", index)
		}
	case step.Pick != "":
		if _, err := model.ParseRef(step.Pick); err != nil {
			return fmt.Errorf("flow[%d]: pick: %w", index, err)
		}
	case step.Exit != "":
		if step.Exit != "detail" && step.Exit != "comparison" {
			return fmt.Errorf("flow[%d]: exit must be detail or comparison, got %q", index, step.Exit)
		}
	case step.Key != "":
		if !overlay.ParseKey(step.Key).IsToggleChord() {
			return fmt.Errorf("flow[%d]: key %q is not a palette chord", index, step.Key)
		}
	case step.Page < 0:
		return fmt.Errorf("flow[%d]: page must be positive", index)
	}
	return nil
}

// gestures names the gesture fields that are set.
func (s *FlowStep) gestures() []string {
	var set []string
	add := func(ok bool, name string) {
		if ok {
			set = append(set, name)
		}
	}
	add(s.Input != nil, "input")
	add(s.Submit != nil, "submit")
	add(s.Select != 0, "select")
	add(len(s.Compare) > 0, "compare")
	add(s.Exit != "", "exit")
	add(s.Key != "", "key")
	add(s.Palette != nil, "palette")
	add(s.Pick != "", "pick")
	add(s.Action != "", "action")
	add(s.Navigate != "", "navigate")
	add(s.Back, "back")
	add(s.Advance != "", "advance")
	add(s.Page != 0, "page")
	add(s.Sort != "", "sort")
	add(s.Types != nil, "types")
	add(s.Subjects != nil, "subjects")
	add(s.Topic != nil, "topic")
	return set
}

// String describes the gesture as it appears in traces.
func (s *FlowStep) String() string {
	switch {
	case s.Input != nil:
		return fmt.Sprintf("input %q", *s.Input)
	case s.Submit != nil:
		return fmt.Sprintf("submit %q", *s.Submit)
	case s.Select != 0:
		return fmt.Sprintf("select %d", s.Select)
	case len(s.Compare) > 0:
		ids := make([]string, len(s.Compare))
		for i, id := range s.Compare {
			ids[i] = strconv.FormatInt(id, 10)
		}
		return "compare " + strings.Join(ids, ",")
	case s.Exit != "":
		return "exit " + s.Exit
	case s.Key != "":
		return "key " + s.Key
	case s.Palette != nil:
		return fmt.Sprintf("palette %q", *s.Palette)
	case s.Pick != "":
		return "pick " + s.Pick
	case s.Action != "":
		return "action " + s.Action
	case s.Navigate != "":
		return "navigate " + s.Navigate
	case s.Back:
		return "back"
	case s.Advance != "":
		return "advance " + s.Advance
	case s.Page != 0:
		return fmt.Sprintf("page %d", s.Page)
	case s.Sort != "":
		return "sort " + s.Sort
	case s.Types != nil:
		return "types " + strings.Join(s.Types, ",")
	case s.Subjects != nil:
		return "subjects " + strings.Join(s.Subjects, ",")
	case s.Topic != nil:
		return fmt.Sprintf("topic %q", *s.Topic)
	}
	return "noop"
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertLocation:
		if a.Value == "" {
			return fmt.Errorf("assertions[%d]: value is required for location", index)
		}
	case AssertHistoryLen:
		if a.Count < 1 {
			return fmt.Errorf("assertions[%d]: count must be at least 1 for history_len", index)
		}
	case AssertCallCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for call_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for call_count", index)
		}
	case AssertCallOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for call_order", index)
		}
	case AssertStateContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for state_contains", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
