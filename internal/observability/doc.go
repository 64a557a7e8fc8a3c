// Package observability records what happens during wheel sessions. Events
// are appended to a JSON Lines (JSONL) log, workload statistics are derived
// from that log on demand, and finished sessions can be announced to Slack.
package observability
