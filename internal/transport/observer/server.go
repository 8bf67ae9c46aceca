// Package observer serves the loopback-only operator surface: an archive
// inventory snapshot, a websocket stream of operation events, and Prometheus
// metrics.
package observer

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/elitenudel/KjellnersPesistentMaps/internal/persistence/indexdb"
	"github.com/elitenudel/KjellnersPesistentMaps/internal/protocol"
)

type Server struct {
	index *indexdb.SQLiteIndex
	feed  *Feed
	reg   *prometheus.Registry
	log   *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(index *indexdb.SQLiteIndex, feed *Feed, reg *prometheus.Registry, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Writer(), "[observer] ", log.LstdFlags|log.Lmsgprefix)
	}
	return &Server{
		index: index,
		feed:  feed,
		reg:   reg,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // loopback only
		},
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/bootstrap", s.BootstrapHandler())
	mux.HandleFunc("/ws", s.WSHandler())
	mux.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
	return mux
}

// BootstrapResponse is the inventory snapshot a client fetches before
// opening the event stream.
type BootstrapResponse struct {
	ProtocolVersion string           `json:"protocol_version"`
	Archives        []ArchiveSummary `json:"archives"`
	SideRegistries  []string         `json:"side_registries"`
	GeneratedAt     string           `json:"generated_at"`
}

type ArchiveSummary struct {
	RegionID      string `json:"region_id"`
	AbandonedTick uint64 `json:"abandoned_tick"`
	Entities      int    `json:"entities"`
	Groups        int    `json:"groups"`
	RecordedAt    string `json:"recorded_at"`
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		resp := BootstrapResponse{
			ProtocolVersion: protocol.Version,
			Archives:        []ArchiveSummary{},
			SideRegistries:  []string{},
			GeneratedAt:     time.Now().UTC().Format(time.RFC3339Nano),
		}
		if s.index != nil {
			s.index.Flush()
			rows, err := s.index.ListArchives(r.Context())
			if err != nil {
				http.Error(rw, "index unavailable", http.StatusInternalServerError)
				return
			}
			for _, row := range rows {
				resp.Archives = append(resp.Archives, ArchiveSummary{
					RegionID:      row.RegionID,
					AbandonedTick: row.AbandonedTick,
					Entities:      row.Entities,
					Groups:        row.Groups,
					RecordedAt:    row.RecordedAt,
				})
			}
			sides, err := s.index.ListSideRegistries(r.Context())
			if err != nil {
				http.Error(rw, "index unavailable", http.StatusInternalServerError)
				return
			}
			for id := range sides {
				resp.SideRegistries = append(resp.SideRegistries, id)
			}
		}

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		events, backlog, unsubscribe := s.feed.Subscribe()
		defer unsubscribe()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		writeErr := make(chan error, 1)
		go func() {
			for _, b := range backlog {
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					writeErr <- err
					return
				}
			}
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-events:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Reader loop: the stream is one-way, reads only notice disconnect.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(time.Second))

		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
