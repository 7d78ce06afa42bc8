package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/zeusync/eca/internal/core/events/bus"
	"github.com/zeusync/eca/internal/core/fields"
	"github.com/zeusync/eca/internal/core/models"
	"github.com/zeusync/eca/internal/core/observability/log"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024
)

type Config struct {
	ListenAddr string
	// Topic is the bus topic the mirror publishes runtime events on.
	Topic string
	// Buffer is the per-client outbound queue length. Messages for a full queue are dropped.
	Buffer     int
	MaxClients int
}

func DefaultConfig() Config {
	return Config{
		ListenAddr: "127.0.0.1:8080",
		Topic:      "world",
		Buffer:     256,
		MaxClients: 10_000,
	}
}

// FeedServer streams runtime events to websocket clients and accepts spawn,
// get and propose requests against a collection.
//
// Clients connect to /ws, optionally with ?entity=<uuid> to receive only the
// events of one entity.
type FeedServer struct {
	cfg        Config
	bus        bus.EventBus
	collection *models.EntityCollection
	resolver   models.SchemaResolver
	auth       Authenticator
	// world serializes every model access made on behalf of clients.
	world sync.Locker
	log   log.Log

	upgrader websocket.Upgrader

	mx      sync.Mutex
	clients map[*client]struct{}
	subs    []bus.Subscription

	httpServer *http.Server
	listener   net.Listener
	running    atomic.Bool
	closed     atomic.Bool
	dropped    atomic.Uint64
}

func NewFeedServer(
	cfg Config,
	b bus.EventBus,
	collection *models.EntityCollection,
	resolver models.SchemaResolver,
	auth Authenticator,
	world sync.Locker,
	logger log.Log,
) (*FeedServer, error) {
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultConfig().Buffer
	}
	if auth == nil {
		auth = TokenAuth{}
	}
	if world == nil {
		world = &sync.Mutex{}
	}
	if logger == nil {
		logger = log.Provide()
	}

	s := &FeedServer{
		cfg:        cfg,
		bus:        b,
		collection: collection,
		resolver:   resolver,
		auth:       auth,
		world:      world,
		log:        logger.With(log.String("component", "feed")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}

	for _, typ := range bus.Types {
		sub, err := b.SubscribeTopic(cfg.Topic, typ, s.broadcast)
		if err != nil {
			s.unsubscribe()
			return nil, fmt.Errorf("subscribe %s: %w", typ, err)
		}
		s.subs = append(s.subs, sub)
	}
	return s, nil
}

// Handler serves /ws and /healthz.
func (s *FeedServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// Health reports the server and bus state. Bus metrics stay zero unless an
// observer is registered on the bus.
func (s *FeedServer) Health() Health {
	return Health{
		Status:  "ok",
		Clients: s.Clients(),
		Dropped: s.Dropped(),
		Bus:     s.bus.GetMetrics(),
		Topics:  s.bus.GetTopics(),
	}
}

func (s *FeedServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	data, err := json.Marshal(s.Health())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Start listens on cfg.ListenAddr and serves in the background.
func (s *FeedServer) Start(_ context.Context) error {
	if s.closed.Load() {
		return ErrServerClosed
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrServerAlreadyRunning
	}

	listener, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		s.running.Store(false)
		s.log.Error("Failed to create listener", log.Error(err))
		return fmt.Errorf("%w: %v", ErrListenerFailed, err)
	}
	s.mx.Lock()
	s.listener = listener
	s.mx.Unlock()
	s.httpServer = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: writeWait}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Feed server failed", log.Error(err))
		}
	}()

	s.log.Info("Feed server listening", log.String("addr", listener.Addr().String()))
	return nil
}

// Addr is the bound address once started.
func (s *FeedServer) Addr() string {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.listener == nil {
		return s.cfg.ListenAddr
	}
	return s.listener.Addr().String()
}

// Stop shuts the HTTP server down and disconnects every client.
func (s *FeedServer) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return ErrServerNotRunning
	}
	s.log.Info("Stopping feed server")

	err := s.httpServer.Shutdown(ctx)
	s.disconnectAll()
	return err
}

// Close stops the server if running and drops the bus subscriptions.
func (s *FeedServer) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.running.Load() {
		_ = s.Stop(context.Background())
	}
	s.disconnectAll()
	s.unsubscribe()
	return nil
}

// Clients returns the number of connected clients.
func (s *FeedServer) Clients() int {
	s.mx.Lock()
	defer s.mx.Unlock()
	return len(s.clients)
}

// Dropped returns how many messages were discarded because a client queue was full.
func (s *FeedServer) Dropped() uint64 {
	return s.dropped.Load()
}

func (s *FeedServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.closed.Load() {
		http.Error(w, ErrServerClosed.Error(), http.StatusServiceUnavailable)
		return
	}
	if err := s.auth.Authenticate(r); err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	filter := r.URL.Query().Get("entity")
	if filter != "" {
		if _, err := uuid.Parse(filter); err != nil {
			http.Error(w, "invalid entity id", http.StatusBadRequest)
			return
		}
	}
	if s.cfg.MaxClients > 0 && s.Clients() >= s.cfg.MaxClients {
		http.Error(w, ErrMaxClientsReached.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Upgrade failed", log.Error(err))
		return
	}

	c := newClient(conn, filter, s.cfg.Buffer)
	s.mx.Lock()
	s.clients[c] = struct{}{}
	total := len(s.clients)
	s.mx.Unlock()

	s.log.Info("Client connected",
		log.String("remote_addr", conn.RemoteAddr().String()),
		log.String("entity", filter),
		log.Int("total_clients", total))

	go c.writeLoop()
	s.readLoop(c)
}

func (s *FeedServer) readLoop(c *client) {
	defer func() {
		s.mx.Lock()
		delete(s.clients, c)
		total := len(s.clients)
		s.mx.Unlock()
		c.close()
		s.log.Info("Client disconnected",
			log.String("remote_addr", c.conn.RemoteAddr().String()),
			log.Int("total_clients", total))
	}()

	c.conn.SetReadLimit(maxMessageSize)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("Read failed", log.Error(err))
			}
			return
		}

		req, err := decodeRequest(data)
		if err != nil {
			s.send(c, errorMessage("", err))
			continue
		}
		s.send(c, s.handleRequest(req))
	}
}

func (s *FeedServer) handleRequest(req Request) Message {
	s.world.Lock()
	defer s.world.Unlock()

	switch req.Action {
	case ActionSpawn:
		e := models.NewEntityWithID(uuid.New(), s.collection.ID(), s.resolver)
		if err := s.collection.Add(e); err != nil {
			return errorMessage(req.ID, err)
		}
		return replyMessage(req.ID, e.ID().String(), nil)

	case ActionGet:
		e, err := s.collection.FindString(req.Entity)
		if err != nil {
			return errorMessage(req.ID, err)
		}
		return replyMessage(req.ID, req.Entity, snapshot(e))

	case ActionPropose:
		e, err := s.collection.FindString(req.Entity)
		if err != nil {
			return errorMessage(req.ID, err)
		}
		err = e.Propose(models.Proposal{
			Component: req.Component,
			Attribute: req.Attribute,
			Value:     req.Value,
		})
		if err != nil {
			return errorMessage(req.ID, err)
		}
		return replyMessage(req.ID, req.Entity, map[string]bool{"arbitrated": e.Arbitrated()})

	default:
		return errorMessage(req.ID, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action))
	}
}

func snapshot(e *models.Entity) EntitySnapshot {
	out := EntitySnapshot{
		Entity:     e.ID().String(),
		Owner:      e.Owner().String(),
		Components: make(map[string]map[string]any),
	}
	for _, c := range e.Components() {
		attrs := make(map[string]any)
		for _, a := range c.Attributes() {
			attrs[a.Name()] = fields.Plain(a.Value())
		}
		out.Components[c.Name()] = attrs
	}
	return out
}

// broadcast runs on the publisher goroutine, so it only enqueues.
func (s *FeedServer) broadcast(e bus.Event) error {
	msg := eventMessage(e)
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", e.Type(), err)
	}

	s.mx.Lock()
	defer s.mx.Unlock()
	for c := range s.clients {
		if c.filter != nil && !c.filter(e) {
			continue
		}
		if !c.enqueue(data) {
			s.dropped.Add(1)
		}
	}
	return nil
}

func (s *FeedServer) send(c *client, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.log.Error("Failed to encode reply", log.String("type", msg.Type), log.Error(err))
		return
	}
	if !c.enqueue(data) {
		s.dropped.Add(1)
	}
}

func (s *FeedServer) disconnectAll() {
	s.mx.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mx.Unlock()
	for _, c := range clients {
		c.close()
	}
}

func (s *FeedServer) unsubscribe() {
	for _, sub := range s.subs {
		_ = s.bus.Unsubscribe(sub)
	}
	s.subs = nil
}

// client owns one connection. Only writeLoop writes to conn.
type client struct {
	conn   *websocket.Conn
	filter bus.EventFilter
	send   chan []byte
	done   chan struct{}
	once   sync.Once
}

// newClient follows every event, or only those of entity when it is set.
func newClient(conn *websocket.Conn, entity string, buffer int) *client {
	c := &client{
		conn: conn,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
	if entity != "" {
		c.filter = bus.ForEntity(entity)
	}
	return c
}

func (c *client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *client) writeLoop() {
	defer func() { _ = c.conn.Close() }()
	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.close()
				return
			}
		}
	}
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}
