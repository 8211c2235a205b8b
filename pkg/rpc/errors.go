package rpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// The closed set of failure kinds a rack controller can report for a pod
// operation. Keeping the set closed makes the result selector's priority
// match total instead of a chain of type probes. Anything outside this set
// (transport faults, driver panics surfaced as Internal, round cancellation)
// classifies as FailureOther.

// UnknownPodTypeError reports that the rack controller does not recognize
// the requested pod type at all.
type UnknownPodTypeError struct {
	Type string
}

func (e *UnknownPodTypeError) Error() string {
	if e.Type == "" {
		return "unknown pod type"
	}
	return fmt.Sprintf("unknown pod type %q", e.Type)
}

// NotSupportedError reports that the rack controller recognizes the pod type
// but the driver does not implement the requested operation.
type NotSupportedError struct {
	Op string
}

func (e *NotSupportedError) Error() string {
	if e.Op == "" {
		return "operation not supported by this pod driver"
	}
	return fmt.Sprintf("operation %q not supported by this pod driver", e.Op)
}

// PodActionError reports that the driver attempted the operation and it
// failed for a reason internal to that rack or its hardware.
type PodActionError struct {
	Reason string
}

func (e *PodActionError) Error() string {
	if e.Reason == "" {
		return "pod action failed"
	}
	return fmt.Sprintf("pod action failed: %s", e.Reason)
}

// CancelledError is recorded for a rack controller whose call had not
// settled when a discovery round's shared deadline fired.
type CancelledError struct {
	Timeout time.Duration
}

func (e *CancelledError) Error() string {
	if e.Timeout <= 0 {
		return "discovery call cancelled at round deadline"
	}
	return fmt.Sprintf("discovery call cancelled: round deadline of %s exceeded", e.Timeout)
}

// FailureCategory orders failure kinds by how actionable they are for the
// user. Lower values win when the result selector must pick one error out of
// many.
type FailureCategory int

const (
	FailureUnknownPodType FailureCategory = iota
	FailureNotSupported
	FailureActionFailed
	FailureOther
)

func (c FailureCategory) String() string {
	switch c {
	case FailureUnknownPodType:
		return "unknown_pod_type"
	case FailureNotSupported:
		return "not_supported"
	case FailureActionFailed:
		return "action_failed"
	default:
		return "other"
	}
}

// Classify maps an error onto its failure category.
func Classify(err error) FailureCategory {
	var (
		unknown *UnknownPodTypeError
		notsup  *NotSupportedError
		action  *PodActionError
	)
	switch {
	case errors.As(err, &unknown):
		return FailureUnknownPodType
	case errors.As(err, &notsup):
		return FailureNotSupported
	case errors.As(err, &action):
		return FailureActionFailed
	default:
		return FailureOther
	}
}

// ToStatus converts a pod operation error into a gRPC status error so the
// failure kind survives the wire. The mapping is reversed by FromStatus on
// the calling side.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	var (
		unknown *UnknownPodTypeError
		notsup  *NotSupportedError
		action  *PodActionError
	)
	switch {
	case errors.As(err, &unknown):
		return status.Error(codes.NotFound, err.Error())
	case errors.As(err, &notsup):
		return status.Error(codes.Unimplemented, err.Error())
	case errors.As(err, &action):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// FromStatus reconstructs a typed pod operation error from a gRPC status
// returned by a rack agent's DiscoverPod call. podType is the type the
// caller requested; the wire does not echo it back.
func FromStatus(err error, podType string) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.OK:
		return nil
	case codes.NotFound:
		return &UnknownPodTypeError{Type: podType}
	case codes.Unimplemented:
		return &NotSupportedError{Op: "discover"}
	case codes.FailedPrecondition:
		return &PodActionError{Reason: st.Message()}
	default:
		return err
	}
}
