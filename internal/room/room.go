package room

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jordanhw/menu-sync-backend/internal/engine"
	"github.com/jordanhw/menu-sync-backend/pkg/metrics"
)

type Msg interface{ isRoomMsg() }

// FromClient carries one mutation command. ClientID identifies the
// originator so rejections can be reported back privately.
type FromClient struct {
	ClientID string
	Cmd      engine.Command
}

func (FromClient) isRoomMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Outbound // where this client wants to receive snapshots
}

func (Join) isRoomMsg() {}

type Leave struct{ ClientID string }

func (Leave) isRoomMsg() {}

// RequestState asks for a private snapshot resend. No version bump.
type RequestState struct{ ClientID string }

func (RequestState) isRoomMsg() {}

// Delete notifies every member the room is gone, then stops the actor.
type Delete struct{}

func (Delete) isRoomMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isRoomMsg() {}

type Snapshot struct {
	Version int
	State   engine.State
}

// Outbound is one message on a client's outbox: a state snapshot, a private
// rejection, or the room-deleted notice. Exactly one field is set.
type Outbound struct {
	Snap    *Snapshot
	Err     error
	Deleted bool
}

type View struct {
	Version    int
	NumClients int
	State      engine.State
}

// Room owns one room's state. All access goes through the inbox, so the
// loop goroutine is the single writer: mutation plus broadcast for one
// message always completes before the next message is taken.
type Room struct {
	code    string
	inbox   chan Msg
	state   engine.State
	version int
	clients map[string]chan Outbound
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewRoom(parent context.Context, code string, initial engine.State, log *zap.Logger) *Room {
	ctx, cancel := context.WithCancel(parent)

	r := &Room{
		code:    code,
		inbox:   make(chan Msg, 64),
		state:   initial,
		version: 0,
		clients: make(map[string]chan Outbound),
		log:     log.With(zap.String("room", code)),
		ctx:     ctx,
		cancel:  cancel,
	}

	go r.loop()
	return r
}

// Inbox exposes the message channel for the ws layer and tests.
func (r *Room) Inbox() chan<- Msg { return r.inbox }

// Done reports when the actor has stopped; senders must select on it or
// risk blocking on the inbox of a deleted room.
func (r *Room) Done() <-chan struct{} { return r.ctx.Done() }

func (r *Room) Code() string { return r.code }

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				// Register client + send current snapshot immediately
				r.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- Outbound{Snap: &Snapshot{Version: r.version, State: r.state}}
				metrics.ConnectionsActive.Inc()
				r.log.Info("join", zap.String("client", msg.ClientID), zap.Int("clients", len(r.clients)))

			case Leave:
				if ch, ok := r.clients[msg.ClientID]; ok {
					close(ch) // ends the client's writer
					delete(r.clients, msg.ClientID)
					metrics.ConnectionsActive.Dec()
					r.log.Info("leave", zap.String("client", msg.ClientID), zap.Int("clients", len(r.clients)))
				}

			case FromClient:
				events, newState, err := engine.Apply(r.state, msg.Cmd)
				if err != nil {
					metrics.MutationsTotal.WithLabelValues(string(msg.Cmd.Type), "rejected").Inc()
					r.log.Info("mutation rejected",
						zap.String("client", msg.ClientID),
						zap.String("action", string(msg.Cmd.Type)),
						zap.String("reason", err.Error()))
					r.sendTo(msg.ClientID, Outbound{Err: err})
					break
				}
				r.state = newState
				r.version++
				metrics.MutationsTotal.WithLabelValues(string(msg.Cmd.Type), "ok").Inc()
				r.log.Info("mutation applied",
					zap.String("client", msg.ClientID),
					zap.String("action", string(msg.Cmd.Type)),
					zap.Int("version", r.version),
					zap.String("detail", describe(events)))
				r.broadcast(Outbound{Snap: &Snapshot{Version: r.version, State: r.state}})

			case RequestState:
				r.sendTo(msg.ClientID, Outbound{Snap: &Snapshot{Version: r.version, State: r.state}})

			case Delete:
				r.log.Info("room deleted", zap.Int("clients", len(r.clients)))
				r.broadcast(Outbound{Deleted: true})
				r.shutdown()
				return

			case GetState:
				// test-only: reflect internal state without data races
				msg.Reply <- View{
					Version:    r.version,
					NumClients: len(r.clients),
					State:      r.state,
				}

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) shutdown() {
	for id, ch := range r.clients {
		close(ch) // tell client no more snapshots
		delete(r.clients, id)
		metrics.ConnectionsActive.Dec()
	}
	r.cancel()
	// Joins that were already queued behind the stopping message would
	// otherwise sit in the inbox forever with nobody to answer them.
	// Close their outboxes so the writers behind them terminate.
	for {
		select {
		case m := <-r.inbox:
			if j, ok := m.(Join); ok {
				close(j.Outbox)
			}
		default:
			return
		}
	}
}

func (r *Room) broadcast(out Outbound) {
	for id, ch := range r.clients {
		select {
		case ch <- out:
			// ok
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(r.clients, id)
			metrics.ConnectionsActive.Dec()
			r.log.Warn("dropped slow client", zap.String("client", id))
		}
	}
}

func (r *Room) sendTo(clientID string, out Outbound) {
	ch, ok := r.clients[clientID]
	if !ok {
		return
	}
	select {
	case ch <- out:
	default:
		close(ch)
		delete(r.clients, clientID)
		metrics.ConnectionsActive.Dec()
		r.log.Warn("dropped slow client", zap.String("client", clientID))
	}
}

// describe summarizes applied events for the mutation log line.
func describe(events []engine.Event) string {
	parts := make([]string, 0, len(events))
	for _, e := range events {
		switch e.Type {
		case engine.EvtPersonAdded:
			parts = append(parts, fmt.Sprintf("person_added=%s", e.Name))
		case engine.EvtPersonRemoved:
			parts = append(parts, fmt.Sprintf("person_removed=%s", e.Name))
		case engine.EvtItemToggled:
			state := "off"
			if e.Selected {
				state = "on"
			}
			parts = append(parts, fmt.Sprintf("toggle=%s:%s:%s", e.Name, e.ItemID, state))
		case engine.EvtPersonRenamed:
			parts = append(parts, fmt.Sprintf("person_renamed=%s->%s", e.Name, e.NewName))
		case engine.EvtRoomCleared:
			parts = append(parts, fmt.Sprintf("room_cleared=%d", e.Count))
		}
	}
	if len(parts) == 0 {
		return "no_change"
	}
	return strings.Join(parts, " ")
}
