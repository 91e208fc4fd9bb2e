package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/rpc"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/wfunc/tworooms/broadcast"
	"github.com/wfunc/tworooms/config"
	"github.com/wfunc/tworooms/game"
	"github.com/wfunc/tworooms/identity"
	"github.com/wfunc/tworooms/logger"
	"github.com/wfunc/tworooms/models"
	"github.com/wfunc/tworooms/monitor"
	"github.com/wfunc/tworooms/network"
	tworooms_rpc "github.com/wfunc/tworooms/rpc"
	"github.com/wfunc/tworooms/session"
	"github.com/wfunc/tworooms/timer"
)

// GameServer is the transport glue between connected clients and the
// game engine. All game rules live in the engine; the server only
// parses commands, resolves the caller's session identity, and fans the
// resulting state out to everyone.
type GameServer struct {
	addr           string
	upgrader       websocket.Upgrader
	engine         *game.Engine
	sessionManager *session.Manager
	broadcaster    broadcast.Broadcaster
	rpcServer      *tworooms_rpc.Server
	monitor        *monitor.Monitor
	timers         *timer.Manager
	idleTimeout    time.Duration
	disclosure     game.DisclosureParams
	shutdownChan   chan struct{}
}

func NewGameServer(cfg *config.Config, engine *game.Engine, mon *monitor.Monitor) *GameServer {
	s := &GameServer{
		addr:           cfg.Server.HTTPAddress,
		engine:         engine,
		sessionManager: session.NewManager(),
		monitor:        mon,
		timers:         timer.NewManager(),
		idleTimeout:    cfg.Server.IdleTimeout,
		disclosure: game.DisclosureParams{
			ContractAddress: cfg.Game.ContractAddress,
			ChainID:         cfg.Game.ChainID,
			DurationDays:    cfg.Game.DurationDays,
		},
		shutdownChan: make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	s.broadcaster = broadcast.NewSessionBroadcaster(s.sessionManager)

	if mon != nil {
		engine.OnConflict = mon.IncPersistenceConflicts
	}

	rpcServer, err := tworooms_rpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer

	gameService := tworooms_rpc.NewGameService(engine)
	rpc.Register(gameService)

	if s.idleTimeout > 0 {
		s.timers.Add(s.idleTimeout, time.Minute, s.sweepIdleSessions)
	}

	return s
}

func (s *GameServer) Start() error {
	go s.rpcServer.Start()

	http.HandleFunc("/ws", s.handleWebSocket)
	logger.Log.Infof("Game server listening on %s", s.addr)
	return http.ListenAndServe(s.addr, nil)
}

func (s *GameServer) Shutdown() {
	close(s.shutdownChan)
	s.timers.Stop()
	s.rpcServer.Stop()
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(network.NewWSConnection(conn))
}

func (s *GameServer) handleConnection(conn network.Connection) {
	sess := session.NewSession(uuid.New().String(), conn)
	s.sessionManager.Add(sess)
	if s.monitor != nil {
		s.monitor.IncConnectedPlayers()
	}

	logger.Log.Infof("New connection from %s, session ID: %s", conn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", conn.RemoteAddr(), sess.GetID())
		s.sessionManager.Remove(sess.GetID())
		if s.monitor != nil {
			s.monitor.DecConnectedPlayers()
		}
		conn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := conn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(sess, packet)
		}
	}
}

// --- command payloads and receipts ---

type helloRequest struct {
	Address string `json:"address"`
}

type joinRequest struct {
	Name string `json:"name"`
}

type electLeaderRequest struct {
	Room     string `json:"room"` // "blue" or "red"
	PlayerID string `json:"player_id"`
}

type selectHostageRequest struct {
	PlayerID string `json:"player_id"`
}

type revealRequest struct {
	Signature string `json:"signature"`
}

// receipt is the per-command result reported back to the issuing
// client. Status is "success" or "error"; pending is implicit while the
// command is in flight.
type receipt struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Player  string `json:"player,omitempty"`
	Role    int    `json:"role,omitempty"`
	Room    int    `json:"room,omitempty"`
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	start := time.Now()
	if s.monitor != nil {
		s.monitor.IncCommandsReceived()
		defer func() {
			s.monitor.ObserveCommandLatency(time.Since(start))
		}()
	}

	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		sess.Touch()
	case network.MsgTypeHello:
		s.handleHello(sess, packet)
	case network.MsgTypeJoinGame:
		s.handleJoin(sess, packet)
	case network.MsgTypeStartGame:
		s.handleStartGame(sess, packet)
	case network.MsgTypeElectLeader:
		s.handleElectLeader(sess, packet)
	case network.MsgTypeSelectHostage:
		s.handleSelectHostage(sess, packet)
	case network.MsgTypeAdvanceRound:
		s.handleAdvanceRound(sess, packet)
	case network.MsgTypeRevealRole:
		s.handleRevealRole(sess, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
		s.reply(sess, network.MsgTypeError, receipt{Status: "error", Message: "unknown message type"})
	}
}

// callerIdentity builds the identity provider for a command. The wallet
// lives on the client, so signatures arrive inside the command payload
// and the provider only hands them through.
func (s *GameServer) callerIdentity(sess *session.Session, signature string) identity.Provider {
	address, ok := sess.Address()
	if !ok {
		return identity.Anonymous
	}
	return &identity.Static{
		Addr: address,
		Sign: func(message string) (string, error) {
			if signature == "" {
				return "", errors.New("no signature supplied")
			}
			return signature, nil
		},
	}
}

func (s *GameServer) reply(sess *session.Session, msgID uint16, r receipt) {
	data, err := json.Marshal(r)
	if err != nil {
		logger.Log.Errorf("Error marshalling receipt: %v", err)
		return
	}
	if err := sess.Send(msgID, data); err != nil {
		logger.Log.Warnf("Failed to send receipt to session %s: %v", sess.GetID(), err)
	}
}

func (s *GameServer) replyError(sess *session.Session, msgID uint16, err error) {
	logger.Log.Warnf("Command %d from session %s failed: %v", msgID, sess.GetID(), err)
	s.reply(sess, msgID, receipt{Status: "error", Message: err.Error()})
}

func (s *GameServer) handleHello(sess *session.Session, packet *network.Packet) {
	var req helloRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.replyError(sess, network.MsgTypeHello, err)
		return
	}
	if req.Address == "" {
		s.replyError(sess, network.MsgTypeHello, game.ErrIdentityRequired)
		return
	}

	sess.BindAddress(req.Address)
	s.reply(sess, network.MsgTypeHello, receipt{Status: "success", Message: "Identity bound"})
	s.pushSnapshot(sess)
}

func (s *GameServer) handleJoin(sess *session.Session, packet *network.Packet) {
	var req joinRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.replyError(sess, network.MsgTypeJoinGame, err)
		return
	}

	player, err := s.engine.Join(req.Name, s.callerIdentity(sess, ""))
	if err != nil {
		s.replyError(sess, network.MsgTypeJoinGame, err)
		return
	}

	// The joiner learns their own draw immediately; everyone else only
	// sees the opaque tokens in the roster sync.
	role, _ := player.Role()
	room, _ := player.Room()
	s.reply(sess, network.MsgTypeJoinGame, receipt{
		Status:  "success",
		Message: "Joined game with encrypted role",
		Player:  player.ID,
		Role:    int(role),
		Room:    int(room),
	})
	s.broadcastSnapshot()
}

func (s *GameServer) handleStartGame(sess *session.Session, packet *network.Packet) {
	st, err := s.engine.StartGame(s.callerIdentity(sess, ""))
	if err != nil {
		s.replyError(sess, network.MsgTypeStartGame, err)
		return
	}

	logger.Log.Infof("Game started by session %s", sess.GetID())
	s.reply(sess, network.MsgTypeStartGame, receipt{Status: "success", Message: "Game started"})
	s.trackRound(st)
	s.broadcastSnapshot()
}

func (s *GameServer) handleElectLeader(sess *session.Session, packet *network.Packet) {
	var req electLeaderRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.replyError(sess, network.MsgTypeElectLeader, err)
		return
	}

	var side models.RoomSide
	switch req.Room {
	case "blue":
		side = models.RoomBlue
	case "red":
		side = models.RoomRed
	default:
		s.replyError(sess, network.MsgTypeElectLeader, errors.New("room must be blue or red"))
		return
	}

	if _, err := s.engine.ElectLeader(side, req.PlayerID); err != nil {
		s.replyError(sess, network.MsgTypeElectLeader, err)
		return
	}

	s.reply(sess, network.MsgTypeElectLeader, receipt{Status: "success", Message: "Leader elected"})
	s.broadcastSnapshot()
}

func (s *GameServer) handleSelectHostage(sess *session.Session, packet *network.Packet) {
	var req selectHostageRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.replyError(sess, network.MsgTypeSelectHostage, err)
		return
	}

	if _, err := s.engine.SelectHostage(req.PlayerID); err != nil {
		s.replyError(sess, network.MsgTypeSelectHostage, err)
		return
	}

	s.reply(sess, network.MsgTypeSelectHostage, receipt{Status: "success", Message: "Hostage selected"})
	s.broadcastSnapshot()
}

func (s *GameServer) handleAdvanceRound(sess *session.Session, packet *network.Packet) {
	st, err := s.engine.AdvanceRound()
	if err != nil {
		s.replyError(sess, network.MsgTypeAdvanceRound, err)
		return
	}

	message := "Round advanced"
	if st.Phase == models.PhaseEnded {
		message = "Game ended"
	}
	s.reply(sess, network.MsgTypeAdvanceRound, receipt{Status: "success", Message: message})
	s.trackRound(st)
	s.broadcastSnapshot()
}

func (s *GameServer) handleRevealRole(sess *session.Session, packet *network.Packet) {
	var req revealRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.replyError(sess, network.MsgTypeRevealRole, err)
		return
	}

	role, room, err := s.engine.RevealRole(s.callerIdentity(sess, req.Signature), s.disclosure)
	if err != nil {
		s.replyError(sess, network.MsgTypeRevealRole, err)
		return
	}

	s.reply(sess, network.MsgTypeRevealRole, receipt{
		Status:  "success",
		Message: "Role revealed",
		Role:    int(role),
		Room:    int(room),
	})
}

// --- state fan-out ---

// rosterEntry is the public projection of a player: the room side is
// decoded for display, the role stays an opaque token.
type rosterEntry struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Address       string `json:"address"`
	IsHost        bool   `json:"isHost"`
	Room          int    `json:"room"`
	EncryptedRole string `json:"encryptedRole"`
}

func (s *GameServer) snapshotPayloads() ([]byte, []byte, error) {
	st, players, err := s.engine.Snapshot()
	if err != nil {
		return nil, nil, err
	}

	stateData, err := json.Marshal(st)
	if err != nil {
		return nil, nil, err
	}

	entries := make([]rosterEntry, 0, len(players))
	for _, p := range players {
		room, err := p.Room()
		if err != nil {
			room = 0
		}
		entries = append(entries, rosterEntry{
			ID:            p.ID,
			Name:          p.Name,
			Address:       p.Address,
			IsHost:        p.IsHost,
			Room:          int(room),
			EncryptedRole: p.EncryptedRole,
		})
	}
	rosterData, err := json.Marshal(entries)
	if err != nil {
		return nil, nil, err
	}

	return stateData, rosterData, nil
}

func (s *GameServer) broadcastSnapshot() {
	stateData, rosterData, err := s.snapshotPayloads()
	if err != nil {
		logger.Log.Errorf("Error building snapshot for broadcast: %v", err)
		return
	}
	s.broadcaster.BroadcastToAll(network.MsgTypeStateSync, stateData)
	s.broadcaster.BroadcastToAll(network.MsgTypeRosterSync, rosterData)
}

func (s *GameServer) pushSnapshot(sess *session.Session) {
	stateData, rosterData, err := s.snapshotPayloads()
	if err != nil {
		logger.Log.Errorf("Error building snapshot for session %s: %v", sess.GetID(), err)
		return
	}
	sess.Send(network.MsgTypeStateSync, stateData)
	sess.Send(network.MsgTypeRosterSync, rosterData)
}

func (s *GameServer) trackRound(st models.GameState) {
	if s.monitor != nil {
		s.monitor.SetCurrentRound(st.CurrentRound)
	}
}

// sweepIdleSessions closes connections that have been silent past the
// configured idle timeout. The read loop then reaps the session.
func (s *GameServer) sweepIdleSessions() {
	cutoff := time.Now().Add(-s.idleTimeout)
	for _, sess := range s.sessionManager.All() {
		if sess.IdleSince().Before(cutoff) {
			logger.Log.Infof("Closing idle session %s", sess.GetID())
			sess.Close()
		}
	}
}
