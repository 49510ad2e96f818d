// Package events implements commitment fan-out: a GossipSub topic an
// indexer or wallet client can subscribe to instead of replaying the
// chain to discover new leaves.
package events

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/multiformats/go-multiaddr"

	"github.com/veilpool/engine/pkg/types"
)

// CommitmentTopic is the GossipSub topic name for the commitment event log.
const CommitmentTopic = "shield/commitments/v1"

// wireEvent is the JSON envelope published on CommitmentTopic.
type wireEvent struct {
	Index      uint64 `json:"index"`
	Commitment string `json:"commitment"`
}

// Config configures the publisher's libp2p host.
type Config struct {
	ListenAddrs []string
	PrivateKey  crypto.PrivKey
}

// DefaultConfig listens on an ephemeral TCP port on all interfaces.
func DefaultConfig() *Config {
	return &Config{ListenAddrs: []string{"/ip4/0.0.0.0/tcp/0"}}
}

// Publisher fans out CommitmentEvent values over GossipSub.
type Publisher struct {
	host  host.Host
	topic *pubsub.Topic

	ctx    context.Context
	cancel context.CancelFunc
}

// NewPublisher brings up a libp2p host, joins CommitmentTopic, and
// returns a ready-to-use Publisher.
func NewPublisher(ctx context.Context, cfg *Config) (*Publisher, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	pubCtx, cancel := context.WithCancel(ctx)

	privKey := cfg.PrivateKey
	if privKey == nil {
		var err error
		privKey, _, err = crypto.GenerateKeyPairWithReader(crypto.Ed25519, -1, rand.Reader)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to generate key: %w", err)
		}
	}

	listenAddrs := make([]multiaddr.Multiaddr, len(cfg.ListenAddrs))
	for i, addr := range cfg.ListenAddrs {
		ma, err := multiaddr.NewMultiaddr(addr)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("invalid listen address: %w", err)
		}
		listenAddrs[i] = ma
	}

	h, err := libp2p.New(
		libp2p.Identity(privKey),
		libp2p.ListenAddrs(listenAddrs...),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create host: %w", err)
	}

	ps, err := pubsub.NewGossipSub(pubCtx, h)
	if err != nil {
		h.Close()
		cancel()
		return nil, fmt.Errorf("failed to create pubsub: %w", err)
	}

	topic, err := ps.Join(CommitmentTopic)
	if err != nil {
		h.Close()
		cancel()
		return nil, fmt.Errorf("failed to join commitment topic: %w", err)
	}

	return &Publisher{host: h, topic: topic, ctx: pubCtx, cancel: cancel}, nil
}

// Publish broadcasts a single leaf-insertion event.
func (p *Publisher) Publish(ctx context.Context, ev types.CommitmentEvent) error {
	data, err := json.Marshal(wireEvent{Index: ev.Index, Commitment: ev.Commitment.String()})
	if err != nil {
		return err
	}
	return p.topic.Publish(ctx, data)
}

// Subscription yields decoded CommitmentEvent values from the topic.
type Subscription struct {
	sub *pubsub.Subscription
	self host.Host
}

// Subscribe returns a Subscription an indexer can read from with Next.
func (p *Publisher) Subscribe() (*Subscription, error) {
	sub, err := p.topic.Subscribe()
	if err != nil {
		return nil, err
	}
	return &Subscription{sub: sub, self: p.host}, nil
}

// Next blocks for the next commitment event, skipping messages this
// node itself published.
func (s *Subscription) Next(ctx context.Context) (types.CommitmentEvent, error) {
	for {
		msg, err := s.sub.Next(ctx)
		if err != nil {
			return types.CommitmentEvent{}, err
		}
		if msg.ReceivedFrom == s.self.ID() {
			continue
		}
		var we wireEvent
		if err := json.Unmarshal(msg.Data, &we); err != nil {
			continue
		}
		scalar, err := scalarFromHex(we.Commitment)
		if err != nil {
			continue
		}
		return types.CommitmentEvent{Index: we.Index, Commitment: scalar}, nil
	}
}

func scalarFromHex(s string) (types.Scalar, error) {
	s = strings.TrimPrefix(s, "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return types.Scalar{}, err
	}
	return types.ScalarFromBytes(raw), nil
}

// Close tears down the host.
func (p *Publisher) Close() error {
	p.cancel()
	return p.host.Close()
}
