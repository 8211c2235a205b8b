// Package agent implements the rack controller side: a small gRPC
// service the region fans discovery out to, backed by pluggable pod
// drivers, plus registration and heartbeating against the region.
package agent
