/*
Package types defines the core data structures used throughout Quarry.

This package contains the fundamental types that represent Quarry's domain
model: rack controllers, discovered pods and their capacity hints, and region
events. These types are used by all other packages for state management, API
communication, and discovery coordination.

# Core Types

Fleet topology:
  - RackController: A rack agent known to the region, with its RPC address,
    labels, and liveness state
  - RackStatus: Ready, down, unknown

Discovery:
  - DiscoveredPod: One successful discovery result (architectures, cores,
    CPU speed, memory, local storage)
  - DiscoveredPodHints: Currently-available headroom on a discovered pod
  - PodParameters: Opaque driver configuration passed through verbatim

All types are designed to be serializable (JSON over the wire and inside the
raft log) and carry no behavior of their own.
*/
package types
