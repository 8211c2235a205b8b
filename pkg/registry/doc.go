// Package registry tracks the live rack controller fleet and its
// liveness, and hands ready rack connections to the discovery fan-out.
package registry
