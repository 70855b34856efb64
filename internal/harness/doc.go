// Package harness runs pipelines over fixed data and checks their outputs.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: percentile_screen
//	description: "Middle three of five volumes pass a 20-80 percentile screen"
//	pipeline: ../pipelines/screen      # CUE package, relative to this file
//	pipeline_name: screen              # optional when the package has one pipeline
//	entities: [A, B, C, D, E]
//	columns:
//	  volume:
//	    - [10, 20, 30, 40, 50]
//	mask:                              # optional, default all true
//	  - [true, true, true, true, true]
//	expect:
//	  liquid:
//	    - [false, true, true, true, false]
//
// Matrices are row-major: one row per period, one value per entity. A float
// column may use null for a missing value; an expected float null matches
// NaN. A scenario can instead name the error it must fail with:
//
//	expect_error: INSUFFICIENT_HISTORY
//
// Error codes are the pipeline load (E0xx) and validation (E2xx) codes, the
// engine's run error codes, CYCLIC_DEPENDENCY, and the term error codes.
//
// # Deterministic Testing
//
// Run opens a fresh in-memory result store per scenario and fixes the run
// ID to "scenario-<name>" (or the scenario's run_id), so rendered results
// are stable across runs and suitable for golden file comparison.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/screen.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
