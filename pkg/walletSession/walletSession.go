package walletSession

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/actionLog"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/clients/walletAgent"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/types"
	"go.uber.org/zap"
)

const (
	resubscribeMinBackoff = 100 * time.Millisecond
	resubscribeMaxBackoff = 10 * time.Second
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Session tracks the connection to the remote wallet agent and the account it exposes.
//
// Events from the agent are delivered on EventChannel and applied by Run, one at a time.
type Session struct {
	EventChannel chan *types.WalletEvent

	wallet         walletAgent.IWalletAgent
	actions        *actionLog.ActionLog
	logger         *zap.Logger
	connectTimeout time.Duration

	mu            sync.Mutex
	state         State
	identity      types.PublicIdentity
	connectCancel context.CancelFunc
	connectGen    uint64
	sub           types.Subscription
}

func NewSession(wallet walletAgent.IWalletAgent, actions *actionLog.ActionLog, connectTimeout time.Duration, logger *zap.Logger) *Session {
	return &Session{
		// events are rare; 100 is plenty of headroom for bursts
		EventChannel:   make(chan *types.WalletEvent, 100),
		wallet:         wallet,
		actions:        actions,
		logger:         logger,
		connectTimeout: connectTimeout,
	}
}

// CurrentIdentity returns the connected account, if any.
func (s *Session) CurrentIdentity() (types.PublicIdentity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity, s.state == StateConnected
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect moves the session to Connected. A later Disconnect cancels an in-flight Connect.
func (s *Session) Connect(ctx context.Context, trustedOnly bool) (types.PublicIdentity, error) {
	s.mu.Lock()
	if s.state == StateConnected {
		id := s.identity
		s.mu.Unlock()
		return id, nil
	}
	if s.connectCancel != nil {
		s.connectCancel()
	}
	var connectCtx context.Context
	var cancel context.CancelFunc
	if s.connectTimeout > 0 {
		connectCtx, cancel = context.WithTimeout(ctx, s.connectTimeout)
	} else {
		connectCtx, cancel = context.WithCancel(ctx)
	}
	s.connectGen++
	gen := s.connectGen
	s.connectCancel = cancel
	s.state = StateConnecting
	s.mu.Unlock()

	defer cancel()
	id, err := s.wallet.Connect(connectCtx, trustedOnly)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.connectGen {
		// superseded by Disconnect or a newer Connect
		if err == nil {
			err = fmt.Errorf("connect to wallet agent was cancelled: %w", context.Canceled)
		}
		return types.PublicIdentity{}, err
	}
	s.connectCancel = nil
	if err != nil {
		s.state = StateDisconnected
		return types.PublicIdentity{}, err
	}
	s.setConnected(id)
	return id, nil
}

// EagerConnect attempts a prompt-free connect; failure leaves the session disconnected and
// is not reported.
func (s *Session) EagerConnect(ctx context.Context) {
	if _, err := s.Connect(ctx, true); err != nil {
		s.logger.Sugar().Debugw("Eager wallet connect failed", "error", err)
	}
}

// Disconnect cancels any in-flight Connect and tells the agent to end the session.
func (s *Session) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	if s.connectCancel != nil {
		s.connectCancel()
		s.connectCancel = nil
	}
	s.connectGen++
	wasConnected := s.state == StateConnected
	s.state = StateDisconnected
	s.identity = types.PublicIdentity{}
	s.mu.Unlock()

	if wasConnected {
		s.actions.Append("[disconnect] Wallet disconnected")
	}
	if err := s.wallet.Disconnect(ctx); err != nil {
		s.logger.Sugar().Warnw("Wallet agent disconnect failed", "error", err)
		return err
	}
	return nil
}

// setConnected must be called with mu held.
func (s *Session) setConnected(id types.PublicIdentity) {
	changed := s.state != StateConnected || s.identity != id
	s.state = StateConnected
	s.identity = id
	if changed {
		s.actions.Appendf("[connect] %s", id)
	}
}

func (s *Session) subscribe(ctx context.Context) error {
	sub, err := s.wallet.SubscribeEvents(ctx, s.EventChannel)
	if err != nil {
		return err
	}
	s.mu.Lock()
	old := s.sub
	s.sub = sub
	s.mu.Unlock()
	if old != nil {
		old.Unsubscribe()
	}
	return nil
}

func (s *Session) subscriptionErr() <-chan error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub == nil {
		return nil
	}
	return s.sub.Err()
}

// Run subscribes to wallet events and applies them until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	if err := s.subscribe(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to wallet events: %w", err)
	}
	defer s.dropSubscription()

	s.ListenToChannel(ctx, func(ev *types.WalletEvent) {
		s.HandleEvent(ctx, ev)
	})
	return nil
}

func (s *Session) ListenToChannel(ctx context.Context, handleFunc func(*types.WalletEvent)) {
	backoff := resubscribeMinBackoff
	var retry <-chan time.Time
	for {
		subErr := s.subscriptionErr()
		select {
		case ev := <-s.EventChannel:
			s.logger.Sugar().Debugw("Wallet session received event", "type", ev.Type)
			handleFunc(ev)
		case err, ok := <-subErr:
			if ok && err != nil {
				s.logger.Sugar().Warnw("Wallet event subscription failed, resubscribing", "error", err)
			}
			s.dropSubscription()
			retry = s.resubscribe(ctx, &backoff)
		case <-retry:
			retry = s.resubscribe(ctx, &backoff)
		case <-ctx.Done():
			s.logger.Sugar().Info("Wallet session listener exiting due to context done")
			return
		}
	}
}

func (s *Session) dropSubscription() {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}

// resubscribe returns the timer for the next attempt, or nil once subscribed.
func (s *Session) resubscribe(ctx context.Context, backoff *time.Duration) <-chan time.Time {
	if err := s.subscribe(ctx); err != nil {
		s.logger.Sugar().Warnw("Failed to resubscribe to wallet events", "error", err, "retryIn", *backoff)
		next := time.After(*backoff)
		*backoff = min(*backoff*2, resubscribeMaxBackoff)
		return next
	}
	*backoff = resubscribeMinBackoff
	return nil
}

// HandleEvent applies one wallet event to the session.
func (s *Session) HandleEvent(ctx context.Context, ev *types.WalletEvent) {
	if ev == nil {
		return
	}
	switch ev.Type {
	case types.WalletEventConnected:
		if ev.PublicKey == nil {
			return
		}
		s.mu.Lock()
		if s.state != StateDisconnected {
			s.setConnected(*ev.PublicKey)
		}
		s.mu.Unlock()

	case types.WalletEventDisconnected:
		s.mu.Lock()
		wasConnected := s.state == StateConnected
		if wasConnected {
			s.state = StateDisconnected
			s.identity = types.PublicIdentity{}
		}
		s.mu.Unlock()
		if wasConnected {
			s.actions.Append("[disconnect] Wallet disconnected")
		}

	case types.WalletEventAccountChanged:
		// only a connected session follows account changes; Connect owns the other states
		s.mu.Lock()
		connected := s.state == StateConnected
		if connected {
			if ev.PublicKey != nil {
				s.identity = *ev.PublicKey
			} else {
				s.state = StateDisconnected
				s.identity = types.PublicIdentity{}
			}
		}
		s.mu.Unlock()
		if !connected {
			s.logger.Sugar().Debugw("Ignoring account change while not connected", "state", s.State())
			return
		}

		if ev.PublicKey != nil {
			s.actions.Appendf("[accountChanged] Switched account to %s", ev.PublicKey)
		} else {
			s.logger.Sugar().Infow("Wallet exposed no account, attempting to reconnect")
			go func() {
				if _, err := s.Connect(ctx, false); err != nil {
					s.actions.AppendError(fmt.Errorf("failed to reconnect: %w", err))
					return
				}
				s.actions.Append("[accountChanged] Reconnected successfully")
			}()
		}
		if err := s.subscribe(ctx); err != nil {
			s.logger.Sugar().Warnw("Failed to resubscribe after account change", "error", err)
		}

	default:
		s.logger.Sugar().Warnw("Ignoring unknown wallet event", "type", ev.Type)
	}
}
