// Package harness provides scenario testing for the notevault engine.
//
// The harness seeds an in-memory remote store, runs a flow of mutations
// against a real engine with injected faults, and validates the resulting
// transition trace and final cache.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	owner: 0xTherapist
//	setup:
//	  - key: note_keys
//	    value: '["a"]'
//	flow:
//	  - op: create
//	    content: "Session notes"
//	    emotion: Calm
//	  - op: create
//	    content: "Lost index write"
//	    faults:
//	      - kind: set
//	        key: note_keys
//	        cause: NETWORK
//	    expect:
//	      error: orphaned
//	  - op: retry_index
//	    id: note-2
//	assertions:
//	  - type: records
//	    ids: [note-2, note-1]
//	  - type: record
//	    id: note-1
//	    status: pending
//
// # Assertion Types
//
//   - records: ordered ids of the final cache
//   - record: status and annotation of one cached record
//   - index: ordered ids stored in the remote key index
//   - orphans: ids written but not indexed
//   - state_count: number of transitions in a state
//   - final_state: state of the engine after the flow
//
// # Deterministic Testing
//
// Every run uses sequential record ids (note-1, note-2, ...), a wall clock
// starting at unix 1700000000 that advances one second per created record,
// a fixed analyzer and zero observation windows. Identical scenarios yield
// identical traces, which RunWithGolden compares against
// testdata/golden/{name}.golden.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/orphaned_create_retry.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
