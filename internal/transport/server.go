package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aleister1102/secwatch/internal/common"
	"github.com/aleister1102/secwatch/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/net/websocket"
)

// RequestHandler serves fix requests arriving from clients.
type RequestHandler interface {
	HandleFixApply(ctx context.Context, payload models.FixPayload) models.FixResponse
	HandleFixValidate(ctx context.Context, payload models.FixPayload) (*models.FixPreview, error)
}

// ServerOptions configures a Server.
type ServerOptions struct {
	Address string
	Path    string
	// WatchDir is announced to each client on connect.
	WatchDir string
	// AllowedOrigins lists browser origins that may connect. When empty only
	// loopback origins, and clients sending no Origin, are accepted.
	AllowedOrigins []string
}

// Server accepts WebSocket clients, registers them with the hub and routes
// their fix requests to a RequestHandler.
//
// fix-complete and fix-error for an applied fix go to every client, the
// requester included. fix-preview, and errors for a validate request, go
// to the requester only.
type Server struct {
	logger     zerolog.Logger
	hub        *Hub
	handler    RequestHandler
	opts       ServerOptions
	httpServer *http.Server
	listener   net.Listener
}

// NewServer creates a new Server.
func NewServer(logger zerolog.Logger, hub *Hub, handler RequestHandler, opts ServerOptions) *Server {
	if opts.Path == "" {
		opts.Path = "/ws"
	}
	s := &Server{
		logger:  logger.With().Str("component", "TransportServer").Logger(),
		hub:     hub,
		handler: handler,
		opts:    opts,
	}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler serving the WebSocket endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(s.opts.Path, websocket.Server{
		Handshake: s.handshake,
		Handler:   s.serveConn,
	})
	return mux
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return common.WrapErrorf(err, "listen on %s", s.opts.Address)
	}
	s.listener = listener

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Transport server stopped unexpectedly")
		}
	}()

	s.logger.Info().Str("address", listener.Addr().String()).Str("path", s.opts.Path).Msg("Transport server listening")
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops accepting connections and closes the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handshake(config *websocket.Config, req *http.Request) error {
	origin := req.Header.Get("Origin")
	if origin == "" {
		return nil
	}
	if !s.originAllowed(origin) {
		s.logger.Warn().Str("origin", origin).Msg("Rejected connection from disallowed origin")
		return fmt.Errorf("origin %q not allowed", origin)
	}
	parsed, err := websocket.Origin(config, req)
	if err != nil {
		return err
	}
	config.Origin = parsed
	return nil
}

func (s *Server) originAllowed(origin string) bool {
	if len(s.opts.AllowedOrigins) > 0 {
		for _, allowed := range s.opts.AllowedOrigins {
			if allowed == "*" || strings.EqualFold(allowed, origin) {
				return true
			}
		}
		return false
	}

	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) serveConn(ws *websocket.Conn) {
	c := s.hub.register()

	writerDone := make(chan struct{})
	go s.writeLoop(ws, c, writerDone)

	if err := s.hub.send(c, models.MessageConnectionEstablished, models.ConnectionInfo{WatchDir: s.opts.WatchDir}); err != nil {
		s.logger.Error().Err(err).Msg("Failed to greet client")
	}

	for {
		var frame []byte
		if err := websocket.Message.Receive(ws, &frame); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.logger.Debug().Err(err).Uint64("client_id", c.id).Msg("Client read ended")
			}
			break
		}

		var env models.Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			s.logger.Warn().Err(err).Uint64("client_id", c.id).Msg("Undecodable frame from client")
			s.reply(c, models.MessageFixError, decodeFailure(models.FixPayload{}, err))
			continue
		}
		s.dispatch(c, env)
	}

	// Closing the conn unblocks the writer if it is mid-send.
	ws.Close()
	s.hub.unregister(c)
	<-writerDone
}

func (s *Server) writeLoop(ws *websocket.Conn, c *client, done chan<- struct{}) {
	defer close(done)
	for frame := range c.send {
		if err := websocket.Message.Send(ws, string(frame)); err != nil {
			s.logger.Debug().Err(err).Uint64("client_id", c.id).Msg("Client write failed")
			ws.Close()
			// Drain until unregister closes the channel.
			for range c.send {
			}
			return
		}
	}
}

func (s *Server) dispatch(c *client, env models.Envelope) {
	// In-flight fixes are not tied to the connection's lifetime.
	ctx := context.Background()

	switch env.Type {
	case models.MessageFixApply:
		var payload models.FixPayload
		if err := env.Decode(&payload); err != nil {
			s.reply(c, models.MessageFixError, decodeFailure(payload, err))
			return
		}
		resp := s.handler.HandleFixApply(ctx, payload)
		msgType := models.MessageFixComplete
		if !resp.Success {
			msgType = models.MessageFixError
		}
		if err := s.hub.Broadcast(msgType, resp); err != nil {
			s.logger.Error().Err(err).Msg("Failed to broadcast fix response")
		}

	case models.MessageFixValidate:
		var payload models.FixPayload
		if err := env.Decode(&payload); err != nil {
			s.reply(c, models.MessageFixError, decodeFailure(payload, err))
			return
		}
		preview, err := s.handler.HandleFixValidate(ctx, payload)
		if err != nil {
			s.reply(c, models.MessageFixError, models.FixResponse{
				FilePath:  payload.FilePath,
				AlertID:   payload.AlertID,
				Error:     err.Error(),
				ErrorKind: common.KindOf(err),
			})
			return
		}
		s.reply(c, models.MessageFixPreview, preview)

	default:
		s.logger.Warn().Str("type", string(env.Type)).Uint64("client_id", c.id).Msg("Ignoring unknown message type")
	}
}

func (s *Server) reply(c *client, msgType models.MessageType, payload any) {
	if err := s.hub.send(c, msgType, payload); err != nil {
		s.logger.Error().Err(err).Str("type", string(msgType)).Msg("Failed to reply to client")
	}
}

func decodeFailure(payload models.FixPayload, err error) models.FixResponse {
	return models.FixResponse{
		FilePath:  payload.FilePath,
		AlertID:   payload.AlertID,
		Error:     err.Error(),
		ErrorKind: models.FixErrorValidation,
	}
}
