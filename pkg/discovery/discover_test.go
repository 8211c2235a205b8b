package discovery

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stonegrid/quarry/pkg/events"
	"github.com/stonegrid/quarry/pkg/log"
	"github.com/stonegrid/quarry/pkg/rpc"
	"github.com/stonegrid/quarry/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.ErrorLevel, JSONOutput: true, Output: io.Discard})
	os.Exit(m.Run())
}

// fakeClient scripts one rack's answer. A non-zero delay makes the
// client sleep, honouring context cancellation, before answering.
type fakeClient struct {
	ident string
	pod   *types.DiscoveredPod
	err   error
	delay time.Duration

	mu     sync.Mutex
	called bool
}

func (c *fakeClient) Ident() string { return c.ident }

func (c *fakeClient) DiscoverPod(ctx context.Context, podType string, params types.PodParameters) (*types.DiscoveredPod, error) {
	c.mu.Lock()
	c.called = true
	c.mu.Unlock()

	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return c.pod, c.err
}

func (c *fakeClient) wasCalled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.called
}

type staticSource []*fakeClient

func (s staticSource) Clients() []RackClient {
	clients := make([]RackClient, len(s))
	for i, c := range s {
		clients[i] = c
	}
	return clients
}

func somePod() *types.DiscoveredPod {
	return &types.DiscoveredPod{
		Architectures: []string{"amd64/generic"},
		Cores:         16,
		Memory:        32768,
		LocalStorage:  2 << 30,
	}
}

func TestDiscoverPod_AllRacksQueried(t *testing.T) {
	clients := staticSource{
		{ident: "rack-1", pod: somePod()},
		{ident: "rack-2", err: &rpc.PodActionError{Reason: "connection refused"}},
		{ident: "rack-3", pod: somePod()},
	}

	d := NewDiscoverer(clients)
	result, err := d.DiscoverPod(context.Background(), "virsh", nil, time.Second)
	require.NoError(t, err)

	for _, c := range clients {
		assert.True(t, c.wasCalled(), "rack %s was not queried", c.ident)
	}

	assert.Len(t, result.Discovered, 2)
	assert.Len(t, result.Failures, 1)
	assert.Contains(t, result.Discovered, "rack-1")
	assert.Contains(t, result.Discovered, "rack-3")

	var action *rpc.PodActionError
	assert.ErrorAs(t, result.Failures["rack-2"], &action)
}

func TestDiscoverPod_EveryClientInExactlyOneMap(t *testing.T) {
	clients := staticSource{
		{ident: "rack-1", pod: somePod()},
		{ident: "rack-2", err: &rpc.UnknownPodTypeError{Type: "lxd"}},
		{ident: "rack-3", delay: 10 * time.Second},
		{ident: "rack-4", pod: somePod()},
	}

	d := NewDiscoverer(clients)
	result, err := d.DiscoverPod(context.Background(), "lxd", nil, 100*time.Millisecond)
	require.NoError(t, err)

	assert.Equal(t, len(clients), len(result.Discovered)+len(result.Failures))
	for _, c := range clients {
		_, ok := result.Discovered[c.ident]
		_, failed := result.Failures[c.ident]
		assert.True(t, ok != failed, "rack %s must appear in exactly one map", c.ident)
	}
}

func TestDiscoverPod_TimeoutStampsCancelled(t *testing.T) {
	clients := staticSource{
		{ident: "rack-fast", pod: somePod()},
		{ident: "rack-slow", delay: 10 * time.Second},
	}

	d := NewDiscoverer(clients)

	start := time.Now()
	result, err := d.DiscoverPod(context.Background(), "virsh", nil, 100*time.Millisecond)
	require.NoError(t, err)

	// The round must return promptly after the deadline, not wait out
	// the slow rack.
	assert.Less(t, time.Since(start), 5*time.Second)

	assert.Contains(t, result.Discovered, "rack-fast")

	var cancelled *rpc.CancelledError
	require.ErrorAs(t, result.Failures["rack-slow"], &cancelled)
	assert.Equal(t, 100*time.Millisecond, cancelled.Timeout)
}

func TestDiscoverPod_AllSlowAllCancelled(t *testing.T) {
	clients := staticSource{
		{ident: "rack-1", delay: 10 * time.Second},
		{ident: "rack-2", delay: 10 * time.Second},
		{ident: "rack-3", delay: 10 * time.Second},
	}

	d := NewDiscoverer(clients)
	result, err := d.DiscoverPod(context.Background(), "virsh", nil, 100*time.Millisecond)
	require.NoError(t, err)

	assert.Empty(t, result.Discovered)
	require.Len(t, result.Failures, 3)
	for ident, ferr := range result.Failures {
		var cancelled *rpc.CancelledError
		assert.ErrorAs(t, ferr, &cancelled, "rack %s", ident)
	}
}

func TestDiscoverPod_NoClients(t *testing.T) {
	d := NewDiscoverer(staticSource{})

	result, err := d.DiscoverPod(context.Background(), "virsh", nil, time.Second)
	require.NoError(t, err)
	assert.Empty(t, result.Discovered)
	assert.Empty(t, result.Failures)
}

func TestDiscoverPod_FailuresDoNotShadowSuccess(t *testing.T) {
	clients := staticSource{
		{ident: "rack-1", err: &rpc.UnknownPodTypeError{Type: "virsh"}},
		{ident: "rack-2", err: errors.New("network unreachable")},
		{ident: "rack-3", pod: somePod()},
	}

	d := NewDiscoverer(clients)
	result, err := d.DiscoverPod(context.Background(), "virsh", nil, time.Second)
	require.NoError(t, err)

	pod, berr := BestResult(result)
	require.NoError(t, berr)
	require.NotNil(t, pod)
	assert.Equal(t, 16, pod.Cores)
}

// End to end: a mixed fleet where one rack knows the driver, one rack
// does not, and one rack never answers. The caller still gets the pod.
func TestDiscoverPod_MixedFleetReturnsPod(t *testing.T) {
	clients := staticSource{
		{ident: "rack-1", err: &rpc.UnknownPodTypeError{Type: "virsh"}},
		{ident: "rack-2", pod: somePod()},
		{ident: "rack-3", delay: 10 * time.Second},
	}

	d := NewDiscoverer(clients)
	result, err := d.DiscoverPod(context.Background(), "virsh", nil, 100*time.Millisecond)
	require.NoError(t, err)

	pod, berr := BestResult(result)
	require.NoError(t, berr)
	assert.Equal(t, []string{"amd64/generic"}, pod.Architectures)
}

// End to end: every rack fails for a different reason. The caller gets
// the most informative failure, not whichever landed last.
func TestDiscoverPod_AllFailedSurfacesBestError(t *testing.T) {
	clients := staticSource{
		{ident: "rack-1", err: errors.New("dial tcp: connection refused")},
		{ident: "rack-2", err: &rpc.PodActionError{Reason: "virsh probe failed"}},
		{ident: "rack-3", err: &rpc.UnknownPodTypeError{Type: "rsd"}},
	}

	d := NewDiscoverer(clients)
	result, err := d.DiscoverPod(context.Background(), "rsd", nil, time.Second)
	require.NoError(t, err)

	pod, berr := BestResult(result)
	assert.Nil(t, pod)

	var unknown *rpc.UnknownPodTypeError
	require.ErrorAs(t, berr, &unknown)
	assert.Equal(t, "rsd", unknown.Type)
}

func TestDiscoverPod_PublishesRoundOutcome(t *testing.T) {
	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	sub := broker.Subscribe()

	d := NewDiscoverer(staticSource{{ident: "rack-1", pod: somePod()}}, WithBroker(broker))
	_, err := d.DiscoverPod(context.Background(), "virsh", nil, time.Second)
	require.NoError(t, err)

	select {
	case event := <-sub:
		assert.Equal(t, events.EventPodDiscovered, event.Type)
		assert.Equal(t, "virsh", event.Metadata["pod_type"])
	case <-time.After(2 * time.Second):
		t.Fatal("no event published")
	}
}

func TestDiscoverPod_DefaultTimeoutApplied(t *testing.T) {
	clients := staticSource{{ident: "rack-1", pod: somePod()}}

	d := NewDiscoverer(clients)
	result, err := d.DiscoverPod(context.Background(), "virsh", nil, 0)
	require.NoError(t, err)
	assert.Contains(t, result.Discovered, "rack-1")
}
