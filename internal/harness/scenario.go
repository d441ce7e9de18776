package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/notevault/internal/record"
	"github.com/roach88/notevault/internal/remote"
)

// Scenario defines a conformance scenario.
// A scenario seeds the remote store, runs a flow of mutations against a
// fresh engine and asserts on the resulting trace and final state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Owner is the session owner. Defaults to DefaultOwner.
	Owner string `yaml:"owner,omitempty"`

	// Subject is the session subject. Defaults to the engine default.
	Subject string `yaml:"subject,omitempty"`

	// Analysis is the annotation the fixed analyzer returns.
	// Defaults to DefaultAnalysis.
	Analysis string `yaml:"analysis,omitempty"`

	// Setup writes raw values into the remote store before the engine
	// loads, bypassing faults. Used for fixtures such as malformed blobs.
	Setup []SeedEntry `yaml:"setup,omitempty"`

	// Flow contains the steps executed in order.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// SeedEntry is one raw key written during setup.
type SeedEntry struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// Step is one operation of the flow.
type Step struct {
	// Op is one of the Op* constants.
	Op string `yaml:"op"`

	// ID is the target record (analyze, archive, update, retry_index).
	ID string `yaml:"id,omitempty"`

	// Content and Emotion form the draft of a create.
	Content string `yaml:"content,omitempty"`
	Emotion string `yaml:"emotion,omitempty"`

	// Status is the target status of an update.
	Status string `yaml:"status,omitempty"`

	// Annotation is the annotation of an update.
	Annotation *string `yaml:"annotation,omitempty"`

	// Available is the probe result set by set_available.
	Available *bool `yaml:"available,omitempty"`

	// Faults are injected before the step runs and cleared after it.
	Faults []FaultSpec `yaml:"faults,omitempty"`

	// Expect is the expected outcome. Nil means the step must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// FaultSpec describes one injected remote failure.
type FaultSpec struct {
	// Kind is "set" (next write to Key), "prefix" (every write to keys
	// starting with Key) or "get" (next read of Key).
	Kind string `yaml:"kind"`

	Key string `yaml:"key"`

	// Cause is a remote.Cause name. Defaults to NETWORK. Ignored for get.
	Cause string `yaml:"cause,omitempty"`

	// Stage is "submit" or "confirm". Defaults to submit. Ignored for get.
	Stage string `yaml:"stage,omitempty"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Error is the expected error kind (see ErrorKind). Empty means the
	// step must succeed.
	Error string `yaml:"error,omitempty"`

	// Status is the expected status of the returned record.
	Status string `yaml:"status,omitempty"`
}

// Assertion validates the trace or final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// IDs is the expected ordered id list (records, index, orphans).
	IDs []string `yaml:"ids,omitempty"`

	// ID selects the record checked by a record assertion.
	ID string `yaml:"id,omitempty"`

	// Status and Annotation are the expected record fields.
	Status     string  `yaml:"status,omitempty"`
	Annotation *string `yaml:"annotation,omitempty"`

	// State is the transition state counted by state_count, or the
	// engine state checked by final_state.
	State string `yaml:"state,omitempty"`

	// Count is the expected number of transitions (state_count).
	Count int `yaml:"count,omitempty"`
}

// Step operations.
const (
	OpCreate       = "create"
	OpAnalyze      = "analyze"
	OpArchive      = "archive"
	OpUpdate       = "update"
	OpRetryIndex   = "retry_index"
	OpReload       = "reload"
	OpSetAvailable = "set_available"
)

// Assertion type constants.
const (
	AssertRecords    = "records"
	AssertRecord     = "record"
	AssertIndex      = "index"
	AssertOrphans    = "orphans"
	AssertStateCount = "state_count"
	AssertFinalState = "final_state"
)

var (
	validOps = []string{
		OpCreate, OpAnalyze, OpArchive, OpUpdate, OpRetryIndex, OpReload, OpSetAvailable,
	}
	validAssertions = []string{
		AssertRecords, AssertRecord, AssertIndex, AssertOrphans, AssertStateCount, AssertFinalState,
	}
	validStates = []string{"idle", "pending", "confirmed", "failed"}
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Unknown fields are rejected so "assertion:" vs "assertions:" typos fail loudly.
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

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i, seed := range s.Setup {
		if seed.Key == "" {
			return fmt.Errorf("setup[%d]: key is required", i)
		}
	}

	for i, step := range s.Flow {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}

	return nil
}

func validateStep(step Step) error {
	if !slices.Contains(validOps, step.Op) {
		return fmt.Errorf("unknown op %q", step.Op)
	}

	switch step.Op {
	case OpCreate:
		if step.Content == "" {
			return fmt.Errorf("create requires content")
		}
	case OpAnalyze, OpArchive, OpRetryIndex:
		if step.ID == "" {
			return fmt.Errorf("%s requires id", step.Op)
		}
	case OpUpdate:
		if step.ID == "" {
			return fmt.Errorf("update requires id")
		}
		if step.Status == "" && step.Annotation == nil {
			return fmt.Errorf("update requires status or annotation")
		}
		if step.Status != "" {
			if _, err := record.ParseStatus(step.Status); err != nil {
				return err
			}
		}
	case OpSetAvailable:
		if step.Available == nil {
			return fmt.Errorf("set_available requires available")
		}
	}

	for j, f := range step.Faults {
		if err := validateFault(f); err != nil {
			return fmt.Errorf("faults[%d]: %w", j, err)
		}
	}

	if step.Expect != nil && step.Expect.Error != "" && !slices.Contains(errorKinds, step.Expect.Error) {
		return fmt.Errorf("unknown error kind %q", step.Expect.Error)
	}
	return nil
}

func validateFault(f FaultSpec) error {
	switch f.Kind {
	case "set", "prefix", "get":
	default:
		return fmt.Errorf("unknown fault kind %q", f.Kind)
	}
	if f.Key == "" {
		return fmt.Errorf("key is required")
	}
	if _, err := parseCause(f.Cause); err != nil {
		return err
	}
	if _, err := parseStage(f.Stage); err != nil {
		return err
	}
	return nil
}

func validateAssertion(a Assertion) error {
	if !slices.Contains(validAssertions, a.Type) {
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}

	switch a.Type {
	case AssertRecord:
		if a.ID == "" {
			return fmt.Errorf("record assertion requires id")
		}
	case AssertStateCount, AssertFinalState:
		if !slices.Contains(validStates, a.State) {
			return fmt.Errorf("unknown state %q", a.State)
		}
	}
	return nil
}

func parseCause(name string) (remote.Cause, error) {
	switch remote.Cause(name) {
	case "":
		return remote.CauseNetwork, nil
	case remote.CauseRejected, remote.CauseNetwork, remote.CauseRemote, remote.CauseTimeout:
		return remote.Cause(name), nil
	default:
		return "", fmt.Errorf("unknown cause %q", name)
	}
}

func parseStage(name string) (remote.Stage, error) {
	switch name {
	case "", "submit":
		return remote.StageSubmit, nil
	case "confirm":
		return remote.StageConfirm, nil
	default:
		return 0, fmt.Errorf("unknown stage %q", name)
	}
}
