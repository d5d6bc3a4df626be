// Package integration composes the run-once agent pipeline: a one-shot
// trigger fires a poller, the batch message is filtered and split into
// per-item messages, each item chain runs to a terminal state, and a
// terminator decides when the cycle is over and how it ended.
//
// Stages are plain function composition over Message values. Failures from
// any stage land in the terminator, which is the single error funnel.
package integration
