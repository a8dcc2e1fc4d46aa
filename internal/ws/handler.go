package ws

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jordanhw/menu-sync-backend/internal/engine"
	"github.com/jordanhw/menu-sync-backend/internal/hub"
	"github.com/jordanhw/menu-sync-backend/internal/room"
	"github.com/jordanhw/menu-sync-backend/internal/types"
)

const maxRoomCodeLen = 40

const writeTimeout = 3 * time.Second

// Handler upgrades /ws?room=<code>&key=<key> connections. Rooms are created
// on first join; the key is a process-wide shared secret gating every room.
func Handler(h *hub.Hub, roomKey string, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, ok := normalizeCode(r.URL.Query().Get("room"))
		if !ok {
			http.Error(w, "missing or invalid room", http.StatusBadRequest)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// Browsers on other origins are allowed through; the access
			// key is the gate, not the Origin header.
			InsecureSkipVerify: true,
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		client := r.RemoteAddr
		if roomKey != "" {
			key := r.URL.Query().Get("key")
			if subtle.ConstantTimeCompare([]byte(key), []byte(roomKey)) != 1 {
				log.Info("join rejected",
					zap.String("room", code),
					zap.String("client", client),
					zap.String("reason", "bad_key"))
				_ = writeMsg(r.Context(), conn, types.NewErrorMessage("bad room key"))
				conn.Close(websocket.StatusPolicyViolation, "bad room key")
				return
			}
		}

		out := make(chan room.Outbound, 8)
		clientID := uuid.NewString()

		// EnsureRoom can hand back a room another client deletes before
		// our Join lands; on Done, resolve a fresh room and try again.
		var rm *room.Room
		for {
			reply := make(chan *room.Room, 1)
			h.Inbox() <- hub.EnsureRoom{Code: code, State: engine.NewState(), Reply: reply}
			rm = <-reply
			select {
			case rm.Inbox() <- room.Join{ClientID: clientID, Outbox: out}:
			case <-rm.Done():
				continue
			}
			break
		}
		defer send(rm, room.Leave{ClientID: clientID})

		// Writer goroutine: drains the outbox; when the room closes the
		// channel it closes the socket so the reader loop unblocks too.
		writeCtx, writeCancel := context.WithCancel(context.Background())
		defer writeCancel()
		go func() {
			for o := range out {
				var msg any
				switch {
				case o.Snap != nil:
					msg = types.NewStateMessage(o.Snap.Version, o.Snap.State)
				case o.Err != nil:
					msg = types.NewErrorMessage(o.Err.Error())
				case o.Deleted:
					msg = types.NewRoomDeletedMessage()
				default:
					continue
				}
				if err := writeMsg(writeCtx, conn, msg); err != nil {
					// Broken pipe; close so the reader unblocks now
					// instead of waiting for the peer to disconnect.
					conn.Close(websocket.StatusInternalError, "write failure")
					return
				}
			}
			conn.Close(websocket.StatusNormalClosure, "room closed")
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				// Treat clean close/going-away as normal:
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				// Otherwise, just exit (room.Leave in defer):
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				log.Info("message rejected",
					zap.String("room", code),
					zap.String("client", client),
					zap.String("reason", "bad_json"))
				_ = writeMsg(r.Context(), conn, types.NewErrorMessage("bad json"))
				continue
			}

			switch cm.Action {
			case "request_state":
				send(rm, room.RequestState{ClientID: clientID})

			case "delete_room":
				done := make(chan bool, 1)
				h.Inbox() <- hub.RemoveRoom{Code: code, Reply: done}
				<-done
				// The room broadcasts room_deleted and closes every
				// outbox; our writer shuts this socket down.

			default:
				cmd, ok := toCommand(cm)
				if !ok {
					_ = writeMsg(r.Context(), conn, types.NewErrorMessage("unknown action"))
					continue
				}
				send(rm, room.FromClient{ClientID: clientID, Cmd: cmd})
			}
		}
	}
}

func toCommand(m types.ClientMessage) (engine.Command, bool) {
	switch m.Action {
	case "add_person":
		return engine.Command{Type: engine.CmdAddPerson, Name: m.Name}, true
	case "remove_person":
		return engine.Command{Type: engine.CmdRemovePerson, Name: m.Name}, true
	case "toggle_item":
		return engine.Command{Type: engine.CmdToggleItem, Name: m.Person, ItemID: m.ItemID, Selected: m.Selected}, true
	case "rename_person":
		return engine.Command{Type: engine.CmdRenamePerson, Name: m.Name, NewName: m.NewName}, true
	case "clear_room":
		return engine.Command{Type: engine.CmdClearRoom}, true
	default:
		return engine.Command{}, false
	}
}

// send delivers msg unless the room actor has already stopped.
func send(rm *room.Room, msg room.Msg) {
	select {
	case rm.Inbox() <- msg:
	case <-rm.Done():
	}
}

func writeMsg(ctx context.Context, conn *websocket.Conn, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(wctx, websocket.MessageText, payload)
}

// normalizeCode trims the requested room code and enforces length limits.
// Codes are case-sensitive registry keys.
func normalizeCode(code string) (string, bool) {
	code = strings.TrimSpace(code)
	if code == "" || len(code) > maxRoomCodeLen {
		return "", false
	}
	return code, true
}
