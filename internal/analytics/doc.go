// Package analytics implements the dashboard computations over a cleaned
// Dataset: the cascading filter, per-date aggregation with a rolling mean,
// headline summaries, the map layer and click drill-down.
//
// Every function is pure. Inputs are never modified and each call derives
// fresh views, so a single Dataset can back any number of sessions.
package analytics
