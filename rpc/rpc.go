package rpc

import (
	"errors"
	"net"
	"net/rpc"

	"github.com/wfunc/matchserver/logger"
	"github.com/wfunc/matchserver/models"
	"github.com/wfunc/matchserver/player"
	"github.com/wfunc/matchserver/room"
	"github.com/wfunc/matchserver/services"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server. Services are registered by the caller
// through the net/rpc package before Start is invoked.
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

// ErrNoDatabase is returned for history queries when persistence is disabled.
var ErrNoDatabase = errors.New("match history storage is disabled")

// LobbyService exposes lobby introspection over net/rpc. Methods follow the
// net/rpc signature: exported method, exported arguments, second argument is
// a pointer, return type is error.
type LobbyService struct {
	pool     *room.Pool
	registry *player.Registry
	matches  *services.MatchService
}

// NewLobbyService creates a new LobbyService. matches may be nil when
// persistence is disabled.
func NewLobbyService(pool *room.Pool, registry *player.Registry, matches *services.MatchService) *LobbyService {
	return &LobbyService{
		pool:     pool,
		registry: registry,
		matches:  matches,
	}
}

type StatusArgs struct{}

type StatusReply struct {
	Rooms         []string
	OnlinePlayers int
}

// Status reports the ordered room status list and the connected player count.
func (ls *LobbyService) Status(args *StatusArgs, reply *StatusReply) error {
	reply.Rooms = ls.pool.StatusList()
	reply.OnlinePlayers = ls.registry.Count()
	return nil
}

type RoomStatsArgs struct {
	RoomID int
}

type RoomStatsReply struct {
	Stats *models.RoomStats
}

// GetRoomStats returns historical match stats for one room.
func (ls *LobbyService) GetRoomStats(args *RoomStatsArgs, reply *RoomStatsReply) error {
	if ls.matches == nil {
		return ErrNoDatabase
	}
	stats, err := ls.matches.RoomStats(args.RoomID)
	if err != nil {
		return err
	}
	reply.Stats = stats
	return nil
}
