package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/keyMaterial"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/types"
)

// MockWalletAgent stands in for the browser wallet: it holds a key, answers connect and
// sign requests, and pushes events to subscribers.
type MockWalletAgent struct {
	mu sync.Mutex

	key         *keyMaterial.KeyMaterial
	connected   bool
	subscribers map[*MockSubscription]chan<- *types.WalletEvent
	signCalls   int
	connectCall int
	subscribes  int

	// Trusted lets connect(trustedOnly=true) succeed without a prompt.
	Trusted bool
	// RejectSign makes the user decline signing.
	RejectSign bool
	// Unavailable simulates an absent or disconnected agent.
	Unavailable bool
	// BlockSign makes SignMessage wait for ctx, like an unanswered prompt.
	BlockSign bool
	// ConnectGate, when set, is received from before Connect returns.
	ConnectGate chan struct{}
	// SignOverride, when set, signs with this key instead of the connected one.
	SignOverride *keyMaterial.KeyMaterial
	// Tamper flips a bit in every produced signature.
	Tamper bool
	// SignHook runs before every signature, with the message to be signed.
	SignHook func(message []byte)
}

func NewMockWalletAgent(key *keyMaterial.KeyMaterial) *MockWalletAgent {
	return &MockWalletAgent{
		key:         key,
		Trusted:     true,
		subscribers: make(map[*MockSubscription]chan<- *types.WalletEvent),
	}
}

func (m *MockWalletAgent) Connect(ctx context.Context, trustedOnly bool) (types.PublicIdentity, error) {
	m.mu.Lock()
	m.connectCall++
	gate := m.ConnectGate
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return types.PublicIdentity{}, ctx.Err()
		}
	}

	m.mu.Lock()
	if m.Unavailable {
		m.mu.Unlock()
		return types.PublicIdentity{}, fmt.Errorf("%w: wallet not installed", types.ErrAgentUnavailable)
	}
	if trustedOnly && !m.Trusted {
		m.mu.Unlock()
		return types.PublicIdentity{}, fmt.Errorf("%w: connection not trusted", types.ErrUserRejected)
	}
	m.connected = true
	id := m.key.Identity()
	m.mu.Unlock()

	m.Emit(&types.WalletEvent{Type: types.WalletEventConnected, PublicKey: &id})
	return id, nil
}

func (m *MockWalletAgent) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	m.connected = false
	m.mu.Unlock()

	m.Emit(&types.WalletEvent{Type: types.WalletEventDisconnected})
	return nil
}

func (m *MockWalletAgent) SignMessage(ctx context.Context, message []byte) (*types.SignMessageResponse, error) {
	m.mu.Lock()
	m.signCalls++
	unavailable := m.Unavailable || !m.connected
	reject, block, tamper := m.RejectSign, m.BlockSign, m.Tamper
	key := m.key
	if m.SignOverride != nil {
		key = m.SignOverride
	}
	hook := m.SignHook
	m.mu.Unlock()

	if hook != nil {
		hook(message)
	}
	if unavailable {
		return nil, fmt.Errorf("%w: wallet disconnected", types.ErrAgentUnavailable)
	}
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if reject {
		return nil, fmt.Errorf("%w: user declined", types.ErrUserRejected)
	}

	sig, err := key.Sign(message)
	if err != nil {
		return nil, err
	}
	if tamper {
		sig[0] ^= 0x01
	}
	return &types.SignMessageResponse{
		PublicKey: m.Identity(),
		Signature: sig,
	}, nil
}

func (m *MockWalletAgent) SubscribeEvents(ctx context.Context, ch chan<- *types.WalletEvent) (types.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Unavailable {
		return nil, fmt.Errorf("%w: wallet not installed", types.ErrAgentUnavailable)
	}
	m.subscribes++
	sub := &MockSubscription{errCh: make(chan error, 1), wallet: m}
	m.subscribers[sub] = ch
	return sub, nil
}

// Emit delivers ev to every live subscriber without blocking.
func (m *MockWalletAgent) Emit(ev *types.WalletEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

// SwitchAccount changes the exposed key and emits accountChanged. A nil key emits
// accountChanged(none).
func (m *MockWalletAgent) SwitchAccount(key *keyMaterial.KeyMaterial) {
	m.mu.Lock()
	var ev *types.WalletEvent
	if key == nil {
		ev = &types.WalletEvent{Type: types.WalletEventAccountChanged}
	} else {
		m.key = key
		id := key.Identity()
		ev = &types.WalletEvent{Type: types.WalletEventAccountChanged, PublicKey: &id}
	}
	m.mu.Unlock()
	m.Emit(ev)
}

func (m *MockWalletAgent) Identity() types.PublicIdentity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.key.Identity()
}

func (m *MockWalletAgent) SetConnected(connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = connected
}

func (m *MockWalletAgent) SetUnavailable(unavailable bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Unavailable = unavailable
}

// FailSubscriptions reports err on every live subscription.
func (m *MockWalletAgent) FailSubscriptions(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for sub := range m.subscribers {
		select {
		case sub.errCh <- err:
		default:
		}
	}
}

func (m *MockWalletAgent) SignCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.signCalls
}

func (m *MockWalletAgent) ConnectCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectCall
}

func (m *MockWalletAgent) SubscribeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subscribes
}

func (m *MockWalletAgent) ActiveSubscriptions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscribers)
}

type MockSubscription struct {
	errCh  chan error
	wallet *MockWalletAgent
	once   sync.Once
}

func (s *MockSubscription) Unsubscribe() {
	s.once.Do(func() {
		s.wallet.mu.Lock()
		delete(s.wallet.subscribers, s)
		s.wallet.mu.Unlock()
		close(s.errCh)
	})
}

func (s *MockSubscription) Err() <-chan error {
	return s.errCh
}
