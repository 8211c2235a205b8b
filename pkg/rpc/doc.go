/*
Package rpc defines Quarry's wire surface: the Region service (CLI and rack
agents talking to the region controller) and the RackAgent service (the
region fanning discovery calls out to racks).

Both services are plain gRPC with hand-written service descriptors. Payloads
are the JSON structs in messages.go, carried by the codec registered under
the "json" content-subtype; protobuf payloads (the standard health service)
keep the protobuf wire format on the same connections.

The error taxonomy in errors.go is the contract that lets the region's
result selector rank rack-side failures: UnknownPodTypeError,
NotSupportedError and PodActionError cross the wire as the NotFound,
Unimplemented and FailedPrecondition status codes and are rebuilt by
FromStatus on the calling side. Classify buckets any error into a
FailureCategory, ordered most-actionable first.
*/
package rpc
