package discovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stonegrid/quarry/pkg/events"
	"github.com/stonegrid/quarry/pkg/log"
	"github.com/stonegrid/quarry/pkg/metrics"
	"github.com/stonegrid/quarry/pkg/rpc"
	"github.com/stonegrid/quarry/pkg/types"
)

// DefaultTimeout bounds a discovery round when the caller does not
// supply its own deadline.
const DefaultTimeout = 30 * time.Second

// RackClient is a connection to one rack controller, able to run a
// pod discovery on our behalf.
type RackClient interface {
	Ident() string
	DiscoverPod(ctx context.Context, podType string, params types.PodParameters) (*types.DiscoveredPod, error)
}

// ClientSource yields the rack clients to fan a round out to. The
// registry implements this with its set of ready racks.
type ClientSource interface {
	Clients() []RackClient
}

// Result holds the per-rack outcome of one discovery round. Every
// client that entered the round appears in exactly one of the two maps,
// keyed by rack ident.
type Result struct {
	Discovered map[string]*types.DiscoveredPod
	Failures   map[string]error
}

// Discoverer runs pod discovery rounds against the rack fleet.
type Discoverer struct {
	source ClientSource
	broker *events.Broker
}

// Option adjusts discoverer behaviour.
type Option func(*Discoverer)

// WithBroker makes the discoverer publish round outcomes as events.
func WithBroker(b *events.Broker) Option {
	return func(d *Discoverer) { d.broker = b }
}

// NewDiscoverer creates a Discoverer drawing clients from source.
func NewDiscoverer(source ClientSource, opts ...Option) *Discoverer {
	d := &Discoverer{source: source}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type outcome struct {
	ident string
	pod   *types.DiscoveredPod
	err   error
}

// DiscoverPod asks every available rack controller to probe for a pod
// of the given type, all in parallel under one shared timeout. It
// returns once every rack has answered or the timeout elapses; racks
// still in flight at the deadline are recorded as cancelled failures.
// A timeout of zero or less means DefaultTimeout.
func (d *Discoverer) DiscoverPod(ctx context.Context, podType string, params types.PodParameters, timeout time.Duration) (*Result, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	clients := d.source.Clients()

	roundID := uuid.New().String()
	logger := log.WithRound(roundID)
	logger.Info().Str("pod_type", podType).Int("racks", len(clients)).
		Dur("timeout", timeout).Msg("starting discovery round")

	metrics.DiscoveryRoundsTotal.Inc()
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.DiscoveryRoundDuration)

	result := &Result{
		Discovered: make(map[string]*types.DiscoveredPod),
		Failures:   make(map[string]error),
	}

	if len(clients) == 0 {
		logger.Warn().Msg("no rack controllers available")
		return result, nil
	}

	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Buffered to the fan-out width so stragglers can always complete
	// their send and exit after we stop receiving.
	outcomes := make(chan outcome, len(clients))

	pending := make(map[string]bool, len(clients))
	for _, c := range clients {
		pending[c.Ident()] = true

		go func(c RackClient) {
			pod, err := c.DiscoverPod(rctx, podType, params)
			outcomes <- outcome{ident: c.Ident(), pod: pod, err: err}
		}(c)
	}

	for len(pending) > 0 {
		select {
		case out := <-outcomes:
			d.record(result, logger, pending, out, timeout)

		case <-rctx.Done():
			// The deadline hit. Take anything that raced the timer into
			// the channel, then mark the rest cancelled.
			for len(pending) > 0 {
				select {
				case out := <-outcomes:
					d.record(result, logger, pending, out, timeout)
					continue
				default:
				}
				break
			}

			for ident := range pending {
				err := &rpc.CancelledError{Timeout: timeout}
				result.Failures[ident] = err
				delete(pending, ident)
				metrics.DiscoveryFailuresTotal.WithLabelValues(rpc.Classify(err).String()).Inc()
				logger.Warn().Str("rack_id", ident).Msg("discovery cancelled at deadline")
			}
		}
	}

	logger.Info().Int("discovered", len(result.Discovered)).
		Int("failed", len(result.Failures)).Msg("discovery round complete")

	d.publishOutcome(roundID, podType, result)

	return result, nil
}

func (d *Discoverer) publishOutcome(roundID, podType string, result *Result) {
	if d.broker == nil {
		return
	}

	metadata := map[string]string{"round_id": roundID, "pod_type": podType}

	if len(result.Discovered) > 0 {
		d.broker.Publish(&events.Event{
			Type:     events.EventPodDiscovered,
			Message:  fmt.Sprintf("%d rack(s) discovered a %s pod", len(result.Discovered), podType),
			Metadata: metadata,
		})
		return
	}

	if len(result.Failures) > 0 {
		d.broker.Publish(&events.Event{
			Type:     events.EventDiscoveryFailed,
			Message:  fmt.Sprintf("all %d rack(s) failed %s discovery", len(result.Failures), podType),
			Metadata: metadata,
		})
	}
}

// record files one rack's outcome into the round result. Outcomes from
// racks no longer pending (already stamped cancelled) are dropped.
func (d *Discoverer) record(result *Result, logger zerolog.Logger, pending map[string]bool, out outcome, timeout time.Duration) {
	if !pending[out.ident] {
		return
	}
	delete(pending, out.ident)

	if out.err != nil {
		err := out.err
		// A call the round deadline tore down can surface its own
		// context error before we get to stamp it; both spellings mean
		// the same thing to the caller.
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			err = &rpc.CancelledError{Timeout: timeout}
		}
		result.Failures[out.ident] = err
		metrics.DiscoveryFailuresTotal.WithLabelValues(rpc.Classify(err).String()).Inc()
		logger.Debug().Str("rack_id", out.ident).Err(err).Msg("rack discovery failed")
		return
	}

	result.Discovered[out.ident] = out.pod
	metrics.DiscoverySuccessesTotal.Inc()
	logger.Debug().Str("rack_id", out.ident).Msg("rack discovered pod")
}
