package api

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stonegrid/quarry/pkg/discovery"
	"github.com/stonegrid/quarry/pkg/log"
	"github.com/stonegrid/quarry/pkg/manager"
	"github.com/stonegrid/quarry/pkg/rpc"
	"github.com/stonegrid/quarry/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.ErrorLevel, JSONOutput: true, Output: io.Discard})
	os.Exit(m.Run())
}

type fakeState struct {
	racks     map[string]*types.RackController
	tokenRole string // role ValidateJoinToken returns; "" means invalid
	leader    bool
	voters    []string
}

func newFakeState() *fakeState {
	return &fakeState{
		racks:     make(map[string]*types.RackController),
		tokenRole: "rack",
		leader:    true,
	}
}

func (f *fakeState) CreateRack(r *types.RackController) error { f.racks[r.Ident] = r; return nil }
func (f *fakeState) UpdateRack(r *types.RackController) error { f.racks[r.Ident] = r; return nil }
func (f *fakeState) DeleteRack(ident string) error            { delete(f.racks, ident); return nil }

func (f *fakeState) GetRack(ident string) (*types.RackController, error) {
	r, ok := f.racks[ident]
	if !ok {
		return nil, errors.New("not found")
	}
	return r, nil
}

func (f *fakeState) ListRacks() ([]*types.RackController, error) {
	out := make([]*types.RackController, 0, len(f.racks))
	for _, r := range f.racks {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeState) GenerateJoinToken(role string) (*manager.JoinToken, error) {
	return &manager.JoinToken{Token: "tok-" + role, Role: role, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakeState) ValidateJoinToken(token string) (string, error) {
	if f.tokenRole == "" {
		return "", errors.New("invalid token")
	}
	return f.tokenRole, nil
}

func (f *fakeState) AddVoter(nodeID, address string) error {
	f.voters = append(f.voters, nodeID)
	return nil
}

func (f *fakeState) IsLeader() bool     { return f.leader }
func (f *fakeState) LeaderAddr() string { return "10.0.0.1:7000" }

type fakeFleet struct {
	registered []string
	known      map[string]bool
}

func newFakeFleet() *fakeFleet {
	return &fakeFleet{known: make(map[string]bool)}
}

func (f *fakeFleet) Register(r *types.RackController) error {
	f.registered = append(f.registered, r.Ident)
	f.known[r.Ident] = true
	return nil
}

func (f *fakeFleet) Heartbeat(ident string) error {
	if !f.known[ident] {
		return errors.New("unknown rack")
	}
	return nil
}

func (f *fakeFleet) Remove(ident string) error {
	if !f.known[ident] {
		return errors.New("unknown rack")
	}
	delete(f.known, ident)
	return nil
}

type fakeDiscoverer struct {
	result  *discovery.Result
	podType string
	timeout time.Duration
}

func (f *fakeDiscoverer) DiscoverPod(ctx context.Context, podType string, params types.PodParameters, timeout time.Duration) (*discovery.Result, error) {
	f.podType = podType
	f.timeout = timeout
	return f.result, nil
}

func newTestServer(state *fakeState, fleet *fakeFleet, d Discoverer) *Server {
	return &Server{state: state, fleet: fleet, discoverer: d, logger: log.WithComponent("api")}
}

func TestRegisterRack(t *testing.T) {
	state := newFakeState()
	fleet := newFakeFleet()
	srv := newTestServer(state, fleet, nil)

	resp, err := srv.RegisterRack(context.Background(), &rpc.RegisterRackRequest{
		Address: "10.1.0.2:9460",
		Token:   "whatever",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Rack)
	assert.NotEmpty(t, resp.Rack.Ident)
	assert.Equal(t, types.RackStatusReady, resp.Rack.Status)
	assert.Contains(t, fleet.registered, resp.Rack.Ident)
	assert.Contains(t, state.racks, resp.Rack.Ident)
}

func TestRegisterRack_InvalidToken(t *testing.T) {
	state := newFakeState()
	state.tokenRole = ""
	srv := newTestServer(state, newFakeFleet(), nil)

	_, err := srv.RegisterRack(context.Background(), &rpc.RegisterRackRequest{
		Address: "10.1.0.2:9460",
		Token:   "bogus",
	})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
}

func TestRegisterRack_WrongRole(t *testing.T) {
	state := newFakeState()
	state.tokenRole = "region"
	srv := newTestServer(state, newFakeFleet(), nil)

	_, err := srv.RegisterRack(context.Background(), &rpc.RegisterRackRequest{
		Address: "10.1.0.2:9460",
		Token:   "region-token",
	})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
}

func TestRegisterRack_MissingAddress(t *testing.T) {
	srv := newTestServer(newFakeState(), newFakeFleet(), nil)

	_, err := srv.RegisterRack(context.Background(), &rpc.RegisterRackRequest{Token: "t"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestRegisterRack_KeepsOriginalRegistrationTime(t *testing.T) {
	state := newFakeState()
	registered := time.Now().Add(-time.Hour)
	state.racks["rack-1"] = &types.RackController{Ident: "rack-1", RegisteredAt: registered}
	srv := newTestServer(state, newFakeFleet(), nil)

	resp, err := srv.RegisterRack(context.Background(), &rpc.RegisterRackRequest{
		Ident:   "rack-1",
		Address: "10.1.0.3:9460",
		Token:   "t",
	})
	require.NoError(t, err)
	assert.Equal(t, registered, resp.Rack.RegisteredAt)
}

func TestHeartbeat(t *testing.T) {
	fleet := newFakeFleet()
	fleet.known["rack-1"] = true
	srv := newTestServer(newFakeState(), fleet, nil)

	resp, err := srv.Heartbeat(context.Background(), &rpc.HeartbeatRequest{Ident: "rack-1"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)

	_, err = srv.Heartbeat(context.Background(), &rpc.HeartbeatRequest{Ident: "ghost"})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestRemoveRack(t *testing.T) {
	state := newFakeState()
	state.racks["rack-1"] = &types.RackController{Ident: "rack-1"}
	fleet := newFakeFleet()
	fleet.known["rack-1"] = true
	srv := newTestServer(state, fleet, nil)

	_, err := srv.RemoveRack(context.Background(), &rpc.RemoveRackRequest{Ident: "rack-1"})
	require.NoError(t, err)
	assert.NotContains(t, state.racks, "rack-1")

	_, err = srv.RemoveRack(context.Background(), &rpc.RemoveRackRequest{Ident: "rack-1"})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestGenerateJoinToken_RejectsUnknownRole(t *testing.T) {
	srv := newTestServer(newFakeState(), newFakeFleet(), nil)

	_, err := srv.GenerateJoinToken(context.Background(), &rpc.GenerateJoinTokenRequest{Role: "admin"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	resp, err := srv.GenerateJoinToken(context.Background(), &rpc.GenerateJoinTokenRequest{Role: "rack"})
	require.NoError(t, err)
	assert.Equal(t, "tok-rack", resp.Token)
}

func TestJoinRegion(t *testing.T) {
	state := newFakeState()
	state.tokenRole = "region"
	srv := newTestServer(state, newFakeFleet(), nil)

	resp, err := srv.JoinRegion(context.Background(), &rpc.JoinRegionRequest{
		NodeID:   "region-2",
		BindAddr: "10.0.0.2:7000",
		Token:    "t",
	})
	require.NoError(t, err)
	assert.Equal(t, "joined", resp.Status)
	assert.Contains(t, state.voters, "region-2")
}

func TestJoinRegion_NotLeader(t *testing.T) {
	state := newFakeState()
	state.tokenRole = "region"
	state.leader = false
	srv := newTestServer(state, newFakeFleet(), nil)

	_, err := srv.JoinRegion(context.Background(), &rpc.JoinRegionRequest{
		NodeID: "region-2", BindAddr: "10.0.0.2:7000", Token: "t",
	})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestDiscoverPod(t *testing.T) {
	pod := &types.DiscoveredPod{Cores: 8, Memory: 16384}
	d := &fakeDiscoverer{result: &discovery.Result{
		Discovered: map[string]*types.DiscoveredPod{"rack-1": pod},
		Failures: map[string]error{
			"rack-2": &rpc.PodActionError{Reason: "probe failed"},
		},
	}}
	srv := newTestServer(newFakeState(), newFakeFleet(), d)

	resp, err := srv.DiscoverPod(context.Background(), &rpc.DiscoverPodRequest{
		Type:           "virsh",
		TimeoutSeconds: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, pod, resp.Pod)
	assert.Contains(t, resp.Failures["rack-2"], "probe failed")
	assert.Equal(t, "virsh", d.podType)
	assert.Equal(t, 5*time.Second, d.timeout)
}

func TestDiscoverPod_AllFailed(t *testing.T) {
	d := &fakeDiscoverer{result: &discovery.Result{
		Discovered: map[string]*types.DiscoveredPod{},
		Failures: map[string]error{
			"rack-1": &rpc.UnknownPodTypeError{Type: "virsh"},
			"rack-2": errors.New("boom"),
		},
	}}
	srv := newTestServer(newFakeState(), newFakeFleet(), d)

	_, err := srv.DiscoverPod(context.Background(), &rpc.DiscoverPodRequest{Type: "virsh"})
	require.Error(t, err)
	// Unknown pod type outranks the plain failure and maps to NotFound
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestDiscoverPod_EmptyFleet(t *testing.T) {
	d := &fakeDiscoverer{result: &discovery.Result{
		Discovered: map[string]*types.DiscoveredPod{},
		Failures:   map[string]error{},
	}}
	srv := newTestServer(newFakeState(), newFakeFleet(), d)

	resp, err := srv.DiscoverPod(context.Background(), &rpc.DiscoverPodRequest{Type: "virsh"})
	require.NoError(t, err)
	assert.Nil(t, resp.Pod)
	assert.Empty(t, resp.Failures)
}

func TestDiscoverPod_MissingType(t *testing.T) {
	srv := newTestServer(newFakeState(), newFakeFleet(), &fakeDiscoverer{})

	_, err := srv.DiscoverPod(context.Background(), &rpc.DiscoverPodRequest{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestMethodName(t *testing.T) {
	assert.Equal(t, "DiscoverPod", methodName("/quarry.region.v1.Region/DiscoverPod"))
	assert.Equal(t, "bare", methodName("bare"))
}
