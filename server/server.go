package server

import (
	"math/rand"
	"net/http"
	netrpc "net/rpc"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/matchserver/broadcast"
	"github.com/wfunc/matchserver/logger"
	"github.com/wfunc/matchserver/monitor"
	"github.com/wfunc/matchserver/network"
	"github.com/wfunc/matchserver/persistence"
	"github.com/wfunc/matchserver/player"
	"github.com/wfunc/matchserver/room"
	matchserver_rpc "github.com/wfunc/matchserver/rpc"
	"github.com/wfunc/matchserver/services"
	"github.com/wfunc/matchserver/timer"
)

const defaultRoomCount = 10

// Config wires the lobby server. DB and Monitor are optional; Rand defaults
// to a time-seeded source when nil.
type Config struct {
	HTTPAddress    string
	RPCAddress     string
	RoomCount      int
	Level          int
	AllowedOrigins []string
	Rand           room.Rand
	DB             persistence.Database
	Monitor        *monitor.Monitor
}

// LobbyServer accepts websocket connections, routes client messages to the
// room lifecycle, and fans resulting state out to connected clients.
//
// The room pool and the connection registry form a single shared resource:
// every mutation plus the broadcasts derived from it runs as one atomic unit
// under the server mutex, so two simultaneous joins can never both observe a
// free slot in the same room.
type LobbyServer struct {
	addr         string
	upgrader     websocket.Upgrader
	pool         *room.Pool
	registry     *player.Registry
	broadcaster  broadcast.Broadcaster
	matches      *services.MatchService
	mon          *monitor.Monitor
	rpcServer    *matchserver_rpc.Server
	timers       *timer.Manager
	rng          room.Rand
	level        int
	mutex        sync.Mutex
	shutdownChan chan struct{}
}

func NewLobbyServer(cfg Config) *LobbyServer {
	roomCount := cfg.RoomCount
	if roomCount <= 0 {
		roomCount = defaultRoomCount
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	s := &LobbyServer{
		addr:         cfg.HTTPAddress,
		pool:         room.NewPool(roomCount),
		registry:     player.NewRegistry(),
		mon:          cfg.Monitor,
		rng:          rng,
		level:        cfg.Level,
		shutdownChan: make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(cfg.AllowedOrigins, r)
			},
		},
	}

	s.broadcaster = broadcast.NewLobbyBroadcaster(s.registry, s.pool)

	if cfg.DB != nil {
		s.matches = services.NewMatchService(cfg.DB)
	}

	if cfg.RPCAddress != "" {
		rpcServer, err := matchserver_rpc.NewServer(cfg.RPCAddress)
		if err != nil {
			logger.Log.Fatalf("Failed to create RPC server: %v", err)
		}
		s.rpcServer = rpcServer

		lobbyService := matchserver_rpc.NewLobbyService(s.pool, s.registry, s.matches)
		netrpc.Register(lobbyService)
	}

	return s
}

// originAllowed implements the connection admission check. An empty allowlist
// admits every origin; otherwise the Origin header must match exactly.
// Rejected connections never complete the handshake and receive no messages.
func originAllowed(allowed []string, r *http.Request) bool {
	if len(allowed) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, a := range allowed {
		if a == origin {
			return true
		}
	}
	return false
}

func (s *LobbyServer) Start() error {
	if s.rpcServer != nil {
		go s.rpcServer.Start()
	}

	if s.mon != nil {
		s.timers = timer.NewManager()
		s.timers.Schedule(5*time.Second, 5*time.Second, func() {
			s.mon.SetOccupiedRooms(s.pool.OccupiedCount())
		})
	}

	http.HandleFunc("/ws", s.handleWebSocket)
	logger.Log.Infof("Lobby server listening on %s with %d rooms", s.addr, s.pool.Size())
	return http.ListenAndServe(s.addr, nil)
}

func (s *LobbyServer) Shutdown() {
	close(s.shutdownChan)
	if s.rpcServer != nil {
		s.rpcServer.Stop()
	}
	if s.timers != nil {
		s.timers.Stop()
	}
}

func (s *LobbyServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(network.NewWSConnection(conn))
}

// handleConnection owns one client for its whole lifetime: register, stream
// inbound messages, and on any transport error convert the disconnect into a
// synthetic leave.
func (s *LobbyServer) handleConnection(conn network.Connection) {
	p := s.register(conn)
	logger.Log.Infof("Connection from %s accepted, player ID: %s", conn.RemoteAddr(), p.ID)

	defer func() {
		logger.Log.Infof("Connection from %s closed, player ID: %s", conn.RemoteAddr(), p.ID)
		s.disconnect(p)
		conn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			s.handleMessage(p, data)
		}
	}
}

// register creates an idle player for a fresh connection and immediately
// unicasts the full room-status list, so the lobby UI has state before any
// other message arrives.
func (s *LobbyServer) register(conn network.Connection) *player.Player {
	p := player.New(uuid.New().String(), conn)

	s.mutex.Lock()
	s.registry.Add(p)
	s.broadcaster.SendTo(p, network.NewRoomListMessage(s.pool.StatusList()))
	s.mutex.Unlock()

	if s.mon != nil {
		s.mon.IncOnlinePlayers()
	}
	return p
}

// disconnect unregisters the player and, if it occupied a room, processes the
// departure. The remaining occupant learns about it only through the next
// room_list broadcast.
func (s *LobbyServer) disconnect(p *player.Player) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.registry.Remove(p.ID)
	if s.mon != nil {
		s.mon.DecOnlinePlayers()
	}

	if !p.InRoom() {
		return
	}

	rm, err := s.pool.FindByID(p.RoomID)
	if err != nil {
		logger.Log.Errorf("Player %s references unknown room %d", p.ID, p.RoomID)
		return
	}
	if err := rm.Leave(p); err != nil {
		logger.Log.Errorf("Departure of player %s from room %d failed: %v", p.ID, rm.ID, err)
		return
	}
	s.broadcaster.BroadcastToAll(network.NewRoomListMessage(s.pool.StatusList()))
}

// handleMessage decodes one inbound frame and dispatches it. Malformed and
// unknown payloads are dropped without a reply; the connection stays open. No
// client input is ever fatal to the server.
func (s *LobbyServer) handleMessage(p *player.Player, data []byte) {
	start := time.Now()
	if s.mon != nil {
		s.mon.IncMessagesReceived()
		defer func() {
			s.mon.ObserveMessageLatency(time.Since(start))
		}()
	}

	msg, err := network.DecodeClientMessage(data)
	if err != nil {
		logger.Log.Debugf("Dropping message from player %s: %v", p.ID, err)
		if s.mon != nil {
			s.mon.IncMessagesDropped()
		}
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	switch msg.Type {
	case network.MsgTypeJoinRoom:
		s.handleJoinRoom(p, msg.RoomID)
	case network.MsgTypeLeaveRoom:
		s.handleLeaveRoom(p, msg.RoomID)
	case network.MsgTypeInitializedLevel:
		s.handleInitializedLevel(p)
	}
}

func (s *LobbyServer) handleJoinRoom(p *player.Player, roomID int) {
	rm, err := s.pool.FindByID(roomID)
	if err != nil {
		logger.Log.Warnf("Player %s tried to join unknown room %d", p.ID, roomID)
		return
	}

	if err := rm.Join(p); err != nil {
		// Rejected joins change nothing and trigger no broadcast.
		logger.Log.Warnf("Player %s could not join room %d: %v", p.ID, roomID, err)
		return
	}

	logger.Log.Infof("Player %s joined room %d as %s", p.ID, rm.ID, p.Color)

	s.broadcaster.SendTo(p, network.NewJoinedRoomMessage(rm.ID, p.Color))
	s.broadcaster.BroadcastToAll(network.NewRoomListMessage(s.pool.StatusList()))

	if rm.OccupantCount() == room.Capacity {
		s.initLevel(rm)
	}
}

// initLevel runs when a room fills up: draw two distinct spawn slots and tell
// both occupants to bootstrap the level. They confirm with initialized_level.
func (s *LobbyServer) initLevel(rm *room.Room) {
	spawns := room.PickSpawns(s.rng)
	rm.SetSpawns(spawns)

	logger.Log.Infof("Room %d is full, initializing level %d", rm.ID, s.level)

	if err := s.broadcaster.BroadcastToRoom(rm.ID, network.NewInitLevelMessage(spawns, s.level)); err != nil {
		logger.Log.Errorf("init_level broadcast for room %d failed: %v", rm.ID, err)
	}
}

func (s *LobbyServer) handleLeaveRoom(p *player.Player, roomID int) {
	rm, err := s.pool.FindByID(roomID)
	if err != nil {
		logger.Log.Warnf("Player %s tried to leave unknown room %d", p.ID, roomID)
		return
	}

	if err := rm.Leave(p); err != nil {
		logger.Log.Warnf("Player %s could not leave room %d: %v", p.ID, roomID, err)
		return
	}

	logger.Log.Infof("Player %s left room %d", p.ID, rm.ID)
	s.broadcaster.BroadcastToAll(network.NewRoomListMessage(s.pool.StatusList()))
}

func (s *LobbyServer) handleInitializedLevel(p *player.Player) {
	if !p.InRoom() {
		logger.Log.Debugf("Player %s confirmed level init but is not in a room", p.ID)
		return
	}

	rm, err := s.pool.FindByID(p.RoomID)
	if err != nil {
		logger.Log.Errorf("Player %s references unknown room %d", p.ID, p.RoomID)
		return
	}

	started, err := rm.MarkInitialized(p)
	if err != nil {
		// Covers repeats after the room is already running.
		logger.Log.Debugf("Ignoring level confirmation from player %s for room %d: %v", p.ID, rm.ID, err)
		return
	}
	if !started {
		return
	}

	logger.Log.Infof("Both players ready, starting game in room %d", rm.ID)

	s.broadcaster.BroadcastToAll(network.NewRoomListMessage(s.pool.StatusList()))
	if err := s.broadcaster.BroadcastToRoom(rm.ID, network.NewStartGameMessage()); err != nil {
		logger.Log.Errorf("start_game broadcast for room %d failed: %v", rm.ID, err)
	}

	if s.matches != nil {
		go func() {
			if err := s.matches.RecordMatchStart(rm, s.level); err != nil {
				logger.Log.Errorf("Failed to record match start for room %d: %v", rm.ID, err)
			}
		}()
	}
}
