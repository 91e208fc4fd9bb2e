package rpc

import (
	"net"
	"net/rpc"

	"github.com/wfunc/tworooms/game"
	"github.com/wfunc/tworooms/logger"
	"github.com/wfunc/tworooms/models"
)

// Server manages the RPC listener for the ops surface.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// GameService exposes read-only game inspection over net/rpc.
type GameService struct {
	engine *game.Engine
}

func NewGameService(engine *game.Engine) *GameService {
	return &GameService{engine: engine}
}

type GetStateArgs struct{}

type GetStateReply struct {
	State models.GameState
}

func (gs *GameService) GetState(args *GetStateArgs, reply *GetStateReply) error {
	st, _, err := gs.engine.Snapshot()
	if err != nil {
		return err
	}
	reply.State = st
	return nil
}

type GetRosterArgs struct{}

type GetRosterReply struct {
	Players []models.Player
}

// GetRoster returns the persisted player records. Role and room stay as
// opaque tokens on this surface too.
func (gs *GameService) GetRoster(args *GetRosterArgs, reply *GetRosterReply) error {
	_, players, err := gs.engine.Snapshot()
	if err != nil {
		return err
	}
	reply.Players = make([]models.Player, 0, len(players))
	for _, p := range players {
		record := *p
		reply.Players = append(reply.Players, record)
	}
	return nil
}
