package server

import (
	"fmt"
	"net"
	"testing"

	"github.com/wfunc/matchserver/logger"
	"github.com/wfunc/matchserver/network"
	"github.com/wfunc/matchserver/player"
)

func init() {
	logger.InitDevelopment()
}

// MockConnection records every message sent to a client.
type MockConnection struct {
	Sent []interface{}
}

func (m *MockConnection) Send(v interface{}) error     { m.Sent = append(m.Sent, v); return nil }
func (m *MockConnection) ReadMessage() ([]byte, error) { return nil, nil }
func (m *MockConnection) Close() error                 { return nil }
func (m *MockConnection) RemoteAddr() net.Addr         { return &net.TCPAddr{} }

// lastRoomList returns the most recent room_list the connection received.
func (m *MockConnection) lastRoomList(t *testing.T) network.RoomListMessage {
	t.Helper()
	for i := len(m.Sent) - 1; i >= 0; i-- {
		if msg, ok := m.Sent[i].(network.RoomListMessage); ok {
			return msg
		}
	}
	t.Fatal("no room_list message received")
	return network.RoomListMessage{}
}

func (m *MockConnection) countType(match func(interface{}) bool) int {
	n := 0
	for _, v := range m.Sent {
		if match(v) {
			n++
		}
	}
	return n
}

// fixedRand returns a scripted sequence of draws.
type fixedRand struct {
	values []int
	pos    int
}

func (f *fixedRand) Intn(n int) int {
	v := f.values[f.pos%len(f.values)]
	f.pos++
	return v % n
}

func newTestServer(roomCount int) *LobbyServer {
	return NewLobbyServer(Config{
		RoomCount: roomCount,
		Level:     0,
		Rand:      &fixedRand{values: []int{0, 0}},
	})
}

func connect(s *LobbyServer) (*player.Player, *MockConnection) {
	conn := &MockConnection{}
	p := s.register(conn)
	return p, conn
}

func send(s *LobbyServer, p *player.Player, payload string) {
	s.handleMessage(p, []byte(payload))
}

func TestConnect_ReceivesRoomList(t *testing.T) {
	s := newTestServer(2)
	_, conn := connect(s)

	if len(conn.Sent) != 1 {
		t.Fatalf("Expected exactly one message on connect, got %d", len(conn.Sent))
	}
	list, ok := conn.Sent[0].(network.RoomListMessage)
	if !ok {
		t.Fatalf("Expected room_list on connect, got %T", conn.Sent[0])
	}
	if len(list.Status) != 2 || list.Status[0] != "empty" || list.Status[1] != "empty" {
		t.Errorf("Unexpected initial status list: %v", list.Status)
	}
}

// Scenario A: first player joins room 1.
func TestJoin_FirstPlayer(t *testing.T) {
	s := newTestServer(2)
	p1, conn1 := connect(s)

	send(s, p1, `{"type":"join_room","roomId":1}`)

	// joined_room unicast comes before the room_list broadcast.
	if len(conn1.Sent) < 3 {
		t.Fatalf("Expected initial room_list, joined_room and broadcast, got %d messages", len(conn1.Sent))
	}
	joined, ok := conn1.Sent[1].(network.JoinedRoomMessage)
	if !ok {
		t.Fatalf("Expected joined_room as second message, got %T", conn1.Sent[1])
	}
	if joined.RoomID != 1 || joined.Color != network.ColorBlue {
		t.Errorf("Expected roomId 1 color blue, got %+v", joined)
	}

	list := conn1.lastRoomList(t)
	if list.Status[0] != "waiting" || list.Status[1] != "empty" {
		t.Errorf("Expected [waiting empty], got %v", list.Status)
	}
}

// Scenario B: second player fills the room.
func TestJoin_SecondPlayerTriggersInitLevel(t *testing.T) {
	s := newTestServer(2)
	p1, conn1 := connect(s)
	p2, conn2 := connect(s)

	send(s, p1, `{"type":"join_room","roomId":1}`)
	send(s, p2, `{"type":"join_room","roomId":1}`)

	var joined *network.JoinedRoomMessage
	for _, v := range conn2.Sent {
		if msg, ok := v.(network.JoinedRoomMessage); ok {
			joined = &msg
			break
		}
	}
	if joined == nil {
		t.Fatal("Second player did not receive joined_room")
	}
	if joined.Color != network.ColorGreen {
		t.Errorf("Second occupant must be green, got %q", joined.Color)
	}

	list := conn1.lastRoomList(t)
	if list.Status[0] != "starting" {
		t.Errorf("Expected starting, got %v", list.Status)
	}

	for name, conn := range map[string]*MockConnection{"p1": conn1, "p2": conn2} {
		var init *network.InitLevelMessage
		for _, v := range conn.Sent {
			if msg, ok := v.(network.InitLevelMessage); ok {
				init = &msg
				break
			}
		}
		if init == nil {
			t.Fatalf("%s did not receive init_level", name)
		}
		if init.SpawnLocations.Blue == init.SpawnLocations.Green {
			t.Errorf("%s: spawn slots must be distinct, got %+v", name, init.SpawnLocations)
		}
		for _, slot := range []int{init.SpawnLocations.Blue, init.SpawnLocations.Green} {
			if slot < 0 || slot > 3 {
				t.Errorf("%s: spawn slot out of range: %d", name, slot)
			}
		}
	}
}

// Scenario C: both players confirm level init.
func TestInitializedLevel_BothReadyStartsGame(t *testing.T) {
	s := newTestServer(2)
	p1, conn1 := connect(s)
	p2, conn2 := connect(s)
	send(s, p1, `{"type":"join_room","roomId":1}`)
	send(s, p2, `{"type":"join_room","roomId":1}`)

	send(s, p1, `{"type":"initialized_level"}`)
	send(s, p2, `{"type":"initialized_level"}`)

	isStart := func(v interface{}) bool { _, ok := v.(network.StartGameMessage); return ok }
	if conn1.countType(isStart) != 1 || conn2.countType(isStart) != 1 {
		t.Errorf("Both occupants must receive exactly one start_game, got %d and %d",
			conn1.countType(isStart), conn2.countType(isStart))
	}

	list := conn1.lastRoomList(t)
	if list.Status[0] != "running" || list.Status[1] != "empty" {
		t.Errorf("Expected [running empty], got %v", list.Status)
	}
}

// Sending initialized_level again after the room is running must not
// re-trigger start_game.
func TestInitializedLevel_IdempotentAfterRunning(t *testing.T) {
	s := newTestServer(2)
	p1, conn1 := connect(s)
	p2, conn2 := connect(s)
	send(s, p1, `{"type":"join_room","roomId":1}`)
	send(s, p2, `{"type":"join_room","roomId":1}`)
	send(s, p1, `{"type":"initialized_level"}`)
	send(s, p2, `{"type":"initialized_level"}`)

	send(s, p1, `{"type":"initialized_level"}`)
	send(s, p2, `{"type":"initialized_level"}`)

	isStart := func(v interface{}) bool { _, ok := v.(network.StartGameMessage); return ok }
	if conn1.countType(isStart) != 1 || conn2.countType(isStart) != 1 {
		t.Error("start_game must fire exactly once per occupant")
	}
}

// Scenario D: disconnect while the room is running.
func TestDisconnect_WhileRunning(t *testing.T) {
	s := newTestServer(2)
	p1, _ := connect(s)
	p2, conn2 := connect(s)
	send(s, p1, `{"type":"join_room","roomId":1}`)
	send(s, p2, `{"type":"join_room","roomId":1}`)
	send(s, p1, `{"type":"initialized_level"}`)
	send(s, p2, `{"type":"initialized_level"}`)

	s.disconnect(p1)

	// One occupant remains, so the room falls back to waiting. There is no
	// dedicated "opponent left" message; the room_list broadcast is all the
	// remaining occupant gets.
	list := conn2.lastRoomList(t)
	if list.Status[0] != "waiting" {
		t.Errorf("Expected waiting after one occupant disconnects, got %v", list.Status)
	}

	s.disconnect(p2)
	if s.pool.StatusList()[0] != "empty" {
		t.Errorf("Expected empty after both occupants are gone, got %v", s.pool.StatusList())
	}
	if s.registry.Count() != 0 {
		t.Errorf("Expected empty registry, got %d", s.registry.Count())
	}
}

// Scenario E: joining a full room is rejected with no state change and no
// broadcast.
func TestJoin_FullRoomRejected(t *testing.T) {
	s := newTestServer(2)
	p1, conn1 := connect(s)
	p2, _ := connect(s)
	p3, conn3 := connect(s)
	send(s, p1, `{"type":"join_room","roomId":1}`)
	send(s, p2, `{"type":"join_room","roomId":1}`)

	before1, before3 := len(conn1.Sent), len(conn3.Sent)
	send(s, p3, `{"type":"join_room","roomId":1}`)

	if len(conn1.Sent) != before1 || len(conn3.Sent) != before3 {
		t.Error("Rejected join must not trigger any broadcast")
	}
	if p3.InRoom() {
		t.Error("Rejected player must stay lobby-idle")
	}
	if s.pool.StatusList()[0] != "starting" {
		t.Errorf("Room status must be unchanged, got %v", s.pool.StatusList())
	}
}

func TestLeaveRoom(t *testing.T) {
	s := newTestServer(2)
	p1, conn1 := connect(s)
	send(s, p1, `{"type":"join_room","roomId":1}`)

	send(s, p1, `{"type":"leave_room","roomId":1}`)

	list := conn1.lastRoomList(t)
	if list.Status[0] != "empty" {
		t.Errorf("Expected empty after leave, got %v", list.Status)
	}
	if p1.InRoom() {
		t.Error("Player must be lobby-idle after leaving")
	}
}

func TestMalformedAndUnknownMessagesIgnored(t *testing.T) {
	s := newTestServer(2)
	p1, conn1 := connect(s)

	payloads := []string{
		`this is not json`,
		`{}`,
		`{"roomId":1}`,
		`{"type":"fly_to_moon"}`,
		`{"type":"join_room","roomId":999}`,
		`{"type":"join_room","roomId":-1}`,
		`{"type":"leave_room","roomId":1}`,
		`{"type":"initialized_level"}`,
	}
	before := len(conn1.Sent)
	for _, payload := range payloads {
		send(s, p1, payload)
	}

	if len(conn1.Sent) != before {
		t.Error("Bad input must not produce replies or broadcasts")
	}
	for _, status := range s.pool.StatusList() {
		if status != "empty" {
			t.Errorf("Bad input must not mutate the pool: %v", s.pool.StatusList())
		}
	}
}

// A room with one occupant waits forever; there is no expiry mechanism.
// This is accepted behavior, not a defect.
func TestStalledRoomNeverExpires(t *testing.T) {
	s := newTestServer(2)
	p1, _ := connect(s)
	send(s, p1, `{"type":"join_room","roomId":1}`)

	// Drive plenty of unrelated traffic through the server.
	p2, _ := connect(s)
	for i := 0; i < 50; i++ {
		send(s, p2, `{"type":"join_room","roomId":2}`)
		send(s, p2, `{"type":"leave_room","roomId":2}`)
	}

	if s.pool.StatusList()[0] != "waiting" {
		t.Errorf("Stalled room must stay waiting, got %v", s.pool.StatusList())
	}
}

func TestRoomListIndexAlignment(t *testing.T) {
	s := newTestServer(5)

	players := make([]*player.Player, 5)
	for i := range players {
		players[i], _ = connect(s)
	}

	// Occupy rooms 2 and 4, leaving the rest untouched.
	send(s, players[0], `{"type":"join_room","roomId":2}`)
	send(s, players[1], `{"type":"join_room","roomId":4}`)
	send(s, players[2], `{"type":"join_room","roomId":4}`)

	want := []string{"empty", "waiting", "empty", "starting", "empty"}
	got := s.pool.StatusList()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("status[%d]: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestConcurrentJoins_CapacityNeverExceeded(t *testing.T) {
	s := newTestServer(1)

	const contenders = 8
	done := make(chan struct{})
	for i := 0; i < contenders; i++ {
		p, _ := connect(s)
		go func() {
			defer func() { done <- struct{}{} }()
			send(s, p, `{"type":"join_room","roomId":1}`)
		}()
	}
	for i := 0; i < contenders; i++ {
		<-done
	}

	rm, err := s.pool.FindByID(1)
	if err != nil {
		t.Fatal(err)
	}
	if rm.OccupantCount() > 2 {
		t.Fatalf("Room capacity exceeded: %d occupants", rm.OccupantCount())
	}
	if fmt.Sprint(rm.Status()) != "starting" {
		t.Errorf("Expected starting with 2 occupants, got %v", rm.Status())
	}
}
