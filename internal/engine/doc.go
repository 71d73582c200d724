// Package engine is a local host: it answers the operations a card script
// sends across the host boundary, in process and without the desktop
// application.
//
// The engine implements hostcall.Host. Scripts run in a sandbox realm whose
// capability namespaces dispatch through a hostcall.Client back into the
// engine, so a script exercises the same boundary casing, argument packing
// and envelope encoding it would see against the real host.
//
// Every boundary call is recorded with a seq from a logical Clock, and the
// calls of one run form its trace. A run has a step quota: each runAction
// counts one step, including those issued by nested program actions, so a
// program that keeps dispatching itself terminates with a
// StepsExceededError.
//
// Handled operations:
//
//	get_script_by_id        persisted source from the script store
//	run_action              program_action runs its code in a fresh realm,
//	                        inject_context_action sets a context value,
//	                        any other registered card is recorded only
//	is_cron_expression_vaild  standard five-field cron syntax
//	get_service_state       always Running
//
// Anything else fails with ErrCodeUnsupported.
package engine
