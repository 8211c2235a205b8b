package discovery

import (
	"errors"
	"testing"
	"time"

	"github.com/stonegrid/quarry/pkg/rpc"
	"github.com/stonegrid/quarry/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBestResult_EmptyRound(t *testing.T) {
	pod, err := BestResult(&Result{
		Discovered: map[string]*types.DiscoveredPod{},
		Failures:   map[string]error{},
	})
	assert.Nil(t, pod)
	assert.NoError(t, err)
}

func TestBestResult_SuccessWinsOverAnyFailure(t *testing.T) {
	want := somePod()
	pod, err := BestResult(&Result{
		Discovered: map[string]*types.DiscoveredPod{"rack-2": want},
		Failures: map[string]error{
			"rack-1": &rpc.UnknownPodTypeError{Type: "virsh"},
			"rack-3": &rpc.NotSupportedError{Op: "discover"},
			"rack-4": &rpc.CancelledError{Timeout: time.Second},
		},
	})
	require.NoError(t, err)
	assert.Same(t, want, pod)
}

func TestBestResult_FailurePriority(t *testing.T) {
	unknownType := &rpc.UnknownPodTypeError{Type: "virsh"}
	notSupported := &rpc.NotSupportedError{Op: "discover"}
	actionFailed := &rpc.PodActionError{Reason: "probe failed"}
	plain := errors.New("connection reset")
	cancelled := &rpc.CancelledError{Timeout: time.Second}

	tests := []struct {
		name     string
		failures map[string]error
		want     error
	}{
		{
			name: "unknown type beats everything",
			failures: map[string]error{
				"a": plain,
				"b": actionFailed,
				"c": notSupported,
				"d": unknownType,
			},
			want: unknownType,
		},
		{
			name: "not supported beats action failure",
			failures: map[string]error{
				"a": actionFailed,
				"b": notSupported,
				"c": plain,
			},
			want: notSupported,
		},
		{
			name: "action failure beats plain errors",
			failures: map[string]error{
				"a": plain,
				"b": actionFailed,
			},
			want: actionFailed,
		},
		{
			name: "cancellation ranks with plain errors",
			failures: map[string]error{
				"a": cancelled,
				"b": actionFailed,
			},
			want: actionFailed,
		},
		{
			name:     "only plain errors",
			failures: map[string]error{"a": plain},
			want:     plain,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pod, err := BestResult(&Result{
				Discovered: map[string]*types.DiscoveredPod{},
				Failures:   tt.failures,
			})
			assert.Nil(t, pod)
			assert.Equal(t, tt.want, err)
		})
	}
}

func TestBestResult_ErrorMessagePreserved(t *testing.T) {
	_, err := BestResult(&Result{
		Discovered: map[string]*types.DiscoveredPod{},
		Failures: map[string]error{
			"rack-1": &rpc.PodActionError{Reason: "libvirt socket missing"},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "libvirt socket missing")
}
