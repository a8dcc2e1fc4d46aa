package hub

import (
	"context"

	"go.uber.org/zap"

	"github.com/jordanhw/menu-sync-backend/internal/engine"
	"github.com/jordanhw/menu-sync-backend/internal/room"
	"github.com/jordanhw/menu-sync-backend/pkg/metrics"
)

type HubMsg interface{ isHubMsg() }

type CreateRoom struct {
	Code  string
	State engine.State
	Reply chan *room.Room
}

type GetRoom struct {
	Code  string
	Reply chan *room.Room
}

type EnsureRoom struct {
	Code  string
	State engine.State // only used if creation happens
	Reply chan *room.Room
}

// RemoveRoom deletes a room: it is dropped from the registry and told to
// notify and disconnect its members. Reply reports whether it existed.
type RemoveRoom struct {
	Code  string
	Reply chan bool
}

type ShutdownHub struct{}

func (CreateRoom) isHubMsg() {}
func (GetRoom) isHubMsg()    {}
func (EnsureRoom) isHubMsg() {}
func (RemoveRoom) isHubMsg() {}
func (ShutdownHub) isHubMsg() {}

// Hub is the process-wide room registry. Rooms are created lazily, live
// until explicitly removed, and are never expired automatically.
type Hub struct {
	inbox  chan HubMsg
	rooms  map[string]*room.Room
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  make(map[string]*room.Room),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				if rm := h.rooms[msg.Code]; rm != nil {
					msg.Reply <- rm
					break
				}
				msg.Reply <- h.create(msg.Code, msg.State)

			case GetRoom:
				msg.Reply <- h.rooms[msg.Code] // may be nil

			case EnsureRoom:
				if rm := h.rooms[msg.Code]; rm != nil {
					msg.Reply <- rm
					break
				}
				msg.Reply <- h.create(msg.Code, msg.State)

			case RemoveRoom:
				rm := h.rooms[msg.Code]
				if rm != nil {
					delete(h.rooms, msg.Code)
					metrics.RoomsActive.Dec()
					rm.Inbox() <- room.Delete{}
				}
				if msg.Reply != nil {
					msg.Reply <- rm != nil
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) create(code string, initial engine.State) *room.Room {
	rm := room.NewRoom(h.ctx, code, initial, h.log)
	h.rooms[code] = rm
	metrics.RoomsActive.Inc()
	h.log.Info("room created", zap.String("room", code))
	return rm
}

func (h *Hub) shutdown() {
	for _, rm := range h.rooms {
		rm.Inbox() <- room.Shutdown{}
	}
	metrics.RoomsActive.Sub(float64(len(h.rooms)))
	clear(h.rooms)
	h.cancel()
}
