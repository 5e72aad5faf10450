package client

import (
	"github.com/gorilla/websocket"

	"github.com/wfunc/matchserver/logger"
	"github.com/wfunc/matchserver/network"
)

// Session is a live connection to a lobby server with a controller attached.
type Session struct {
	Controller *Controller
	conn       network.Connection
	done       chan struct{}
}

// Dial connects to a lobby server at url (ws://host:port/ws) and starts the
// read loop feeding the controller. onStart may be nil.
func Dial(url string, onStart func()) (*Session, error) {
	wsConn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}

	conn := network.NewWSConnection(wsConn)
	s := &Session{
		Controller: NewController(conn, onStart),
		conn:       conn,
		done:       make(chan struct{}),
	}

	go s.readLoop()
	return s, nil
}

func (s *Session) readLoop() {
	defer close(s.done)
	for {
		data, err := s.conn.ReadMessage()
		if err != nil {
			logger.Log.Infof("Connection closed: %v", err)
			return
		}
		s.Controller.HandleMessage(data)
	}
}

// Done is closed when the read loop exits.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) Close() error {
	return s.conn.Close()
}
