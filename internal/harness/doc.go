// Package harness runs script scenarios against the local host.
//
// A scenario names a script (inline, or the stored script of an action),
// runs it in a fresh engine and checks the boundary calls it made.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: fetch_and_inject
//	description: "A fetch followed by a context write"
//	cards:                     # optional extra card directories
//	  - ./cards
//	scripts:                   # stored action scripts
//	  a1: |
//	    import { fetch } from "daisy/action/web"
//	    fetch("https://example.com", "Get")
//	run:
//	  action: a1               # boot a stored script, or
//	  script: "..."            # run inline code
//	max_steps: 10
//	expect:
//	  error: "exceeded"        # substring of the run error; omit for success
//	  default: "done"          # default export
//	assertions:
//	  - type: call_contains
//	    action: fetch_action
//	    args: { method: Get }
//	  - type: call_order
//	    actions: [get_script_by_id, fetch_action]
//	  - type: call_count
//	    action: fetch_action
//	    count: 1
//	  - type: final_context
//	    expect: { user: ada }
//
// An assertion's action is the card name of a run_action call, or the
// operation name of any other call.
//
// # Deterministic Runs
//
// Every scenario runs with a fresh logical clock, sequential script
// specifiers and an in-memory script database, so traces are identical
// across runs and can be compared against golden files.
package harness
