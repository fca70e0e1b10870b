// Package server exposes an auction house over a stream socket (TCP or vsock).
// Each connection carries one JSON request and receives one JSON response.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mdlayher/vsock"
	"golang.org/x/sync/errgroup"

	"github.com/cloudx-io/auctionhouse/auctionhouse"
	"github.com/cloudx-io/auctionhouse/core"
	"github.com/cloudx-io/auctionhouse/houseapi"
	"github.com/cloudx-io/auctionhouse/journal"
	"github.com/cloudx-io/auctionhouse/receipt"
)

const (
	NetworkTCP   = "tcp"
	NetworkVsock = "vsock"

	maxRequestBytes = 1 << 20
	maxJournalPage  = 1000
)

type Config struct {
	Network     string
	Address     string // host:port for tcp
	Port        uint32 // vsock port
	MaxWorkers  int
	ReadTimeout time.Duration
}

// Server dispatches requests into a single House. The House is not safe for
// concurrent use, so every engine call holds mu.
type Server struct {
	cfg     Config
	mu      sync.Mutex
	house   *auctionhouse.House
	issuer  *receipt.Issuer
	journal *journal.Journal
	now     func() time.Time
}

// New creates a server. issuer and j may be nil, which disables the
// receipt, public_key and journal requests.
func New(cfg Config, house *auctionhouse.House, issuer *receipt.Issuer, j *journal.Journal) (*Server, error) {
	if house == nil {
		return nil, fmt.Errorf("house is required")
	}
	if cfg.MaxWorkers <= 0 {
		return nil, fmt.Errorf("max workers must be positive, got %d", cfg.MaxWorkers)
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	return &Server{cfg: cfg, house: house, issuer: issuer, journal: j, now: time.Now}, nil
}

// Listen opens the configured listener.
func (s *Server) Listen() (net.Listener, error) {
	switch s.cfg.Network {
	case NetworkVsock:
		ln, err := vsock.Listen(s.cfg.Port, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create vsock listener: %w", err)
		}
		log.Printf("INFO: Auction house listening on vsock port %d", s.cfg.Port)
		return ln, nil
	case NetworkTCP, "":
		ln, err := net.Listen("tcp", s.cfg.Address)
		if err != nil {
			return nil, fmt.Errorf("failed to create tcp listener: %w", err)
		}
		log.Printf("INFO: Auction house listening on %s", ln.Addr())
		return ln, nil
	default:
		return nil, fmt.Errorf("unknown network %q", s.cfg.Network)
	}
}

// ListenAndServe listens and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then closes ln and
// waits for in-flight requests.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	semaphore := make(chan struct{}, s.cfg.MaxWorkers)
	log.Printf("INFO: Worker pool initialized with %d max concurrent workers", s.cfg.MaxWorkers)

	g, ctx := errgroup.WithContext(ctx)
	var workers sync.WaitGroup

	g.Go(func() error {
		<-ctx.Done()
		if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Printf("ERROR: Failed to close listener: %v", err)
		}
		return nil
	})

	g.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					return nil
				}
				log.Printf("ERROR: Failed to accept connection: %v", err)
				continue
			}

			// Acquire worker slot - immediate rejection if pool full
			select {
			case semaphore <- struct{}{}:
				workers.Add(1)
				go func(c net.Conn) {
					defer workers.Done()
					defer func() { <-semaphore }()
					s.handleConnection(c)
				}(conn)
			default:
				log.Printf("INFO: No workers available, rejecting connection (pool full)")
				if err := conn.Close(); err != nil {
					log.Printf("ERROR: Failed to close rejected connection: %v", err)
				}
			}
		}
	})

	err := g.Wait()
	workers.Wait()
	log.Printf("INFO: Auction house server stopped")
	return err
}

func (s *Server) handleConnection(conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: Panic recovered in handleConnection: %v", r)
		}
		if err := conn.Close(); err != nil {
			log.Printf("ERROR: Failed to close connection: %v", err)
		}
	}()

	_ = conn.SetReadDeadline(s.now().Add(s.cfg.ReadTimeout))

	var raw json.RawMessage
	if err := json.NewDecoder(io.LimitReader(conn, maxRequestBytes)).Decode(&raw); err != nil {
		log.Printf("ERROR: Failed to read request: %v", err)
		s.reply(conn, houseapi.NewErrorResponse("", fmt.Errorf("%w: malformed request: %v", core.ErrValidation, err)))
		return
	}

	s.reply(conn, s.Handle(raw))
}

func (s *Server) reply(conn net.Conn, resp *houseapi.Response) {
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		log.Printf("ERROR: Failed to encode response: %v", err)
		return
	}
	log.Printf("INFO: Successfully sent response for %s (%s)", resp.Type, resp.RequestID)
}

// Handle decodes and executes a single request.
func (s *Server) Handle(raw []byte) *houseapi.Response {
	start := s.now()

	var env houseapi.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return houseapi.NewErrorResponse("", fmt.Errorf("%w: decode request: %v", core.ErrValidation, err))
	}
	if env.RequestID == "" {
		env.RequestID = uuid.NewString()
	}
	log.Printf("INFO: Received request type: %s (%s)", env.Type, env.RequestID)

	handler, ok := handlers[env.Type]
	if !ok {
		return houseapi.NewErrorResponse(env.RequestID, fmt.Errorf("%w: unknown request type: %s", core.ErrValidation, env.Type))
	}

	result, err := handler(s, raw)
	if err != nil {
		log.Printf("ERROR: %s request %s failed: %v", env.Type, env.RequestID, err)
		return houseapi.NewErrorResponse(env.RequestID, err)
	}

	typ := env.Type
	if typ == houseapi.TypePing {
		typ = "pong"
	}
	resp, err := houseapi.NewResponse(typ, env.RequestID, result)
	if err != nil {
		log.Printf("ERROR: %v", err)
		return houseapi.NewErrorResponse(env.RequestID, err)
	}
	resp.ProcessingTime = s.now().Sub(start).Milliseconds()
	return resp
}

// decode unmarshals a typed request, reporting failures as validation errors.
func decode(raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: decode request: %v", core.ErrValidation, err)
	}
	return nil
}
