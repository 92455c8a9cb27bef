// Package mjpegserver implements the MJPEG-over-HTTP egress transport: one
// multipart/x-mixed-replace stream per viewer, hand-framed with an explicit
// Content-Length on every part and no closing boundary, served over a
// hijacked connection so this package controls every byte on the wire.
package mjpegserver

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bambucam/internal/frame"
	"bambucam/internal/metrics"
)

const boundary = "boundary"

// Registry is the subset of lifecycle.Controller the handler needs: joining
// and leaving viewers. Declared as an interface so tests can substitute a
// fake.
type Registry interface {
	Join(ctx context.Context, viewerID string) error
	Leave(viewerID string)
}

// Handler serves the MJPEG multipart stream at GET / and 404s everything
// else, including every other method on /.
type Handler struct {
	logger *zap.Logger
	slot   *frame.Slot
	reg    Registry
}

// New returns a Handler that streams frames out of slot, gating upstream
// connect/disconnect through reg.
func New(logger *zap.Logger, slot *frame.Slot, reg Registry) *Handler {
	return &Handler{logger: logger, slot: slot, reg: reg}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet || r.URL.Path != "/" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	hijacker, ok := w.(http.Hijacker)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	conn, rw, err := hijacker.Hijack()
	if err != nil {
		h.logger.Error("hijack failed", zap.Error(err))
		return
	}
	defer conn.Close()

	viewerID := uuid.NewString()
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := h.reg.Join(ctx, viewerID); err != nil {
		h.logger.Warn("viewer join rejected", zap.String("viewer", viewerID), zap.Error(err))
		writeErrorResponse(rw, http.StatusServiceUnavailable)
		return
	}
	defer h.reg.Leave(viewerID)

	metrics.MJPEGSessions.Inc()
	defer metrics.MJPEGSessions.Dec()

	h.logger.Info("viewer connected", zap.String("viewer", viewerID), zap.String("remote", conn.RemoteAddr().String()))
	h.stream(ctx, rw, conn, viewerID)
}

func writeErrorResponse(rw *bufio.ReadWriter, status int) {
	fmt.Fprintf(rw, "HTTP/1.0 %d %s\r\n\r\n", status, http.StatusText(status))
	rw.Flush()
}

// stream runs the BOUNDARY -> HEADER -> BODY -> TRAILER -> IDLE -> BOUNDARY
// loop for one viewer until the connection breaks or the context is
// cancelled. Each BOUNDARY latch takes a private snapshot of the slot so a
// slow viewer never observes a torn frame, matching the invariant that the
// bytes it reads equal the JPEG that was in the slot the instant it
// latched.
func (h *Handler) stream(ctx context.Context, rw *bufio.ReadWriter, conn net.Conn, viewerID string) {
	fmt.Fprintf(rw, "HTTP/1.0 200 OK\r\n"+
		"Content-Type: multipart/x-mixed-replace;boundary=%s\r\n"+
		"Cache-Control: no-cache\r\n"+
		"Connection: close\r\n\r\n", boundary)
	if err := rw.Flush(); err != nil {
		return
	}

	var lastGeneration uint64
	for {
		f, err := h.slot.WaitForNew(ctx, lastGeneration)
		if err != nil {
			return
		}
		lastGeneration = f.Generation

		if _, err := fmt.Fprintf(rw, "--%s\r\n"+
			"Content-Type: image/jpeg\r\n"+
			"Content-Length: %d\r\n\r\n", boundary, len(f.Bytes)); err != nil {
			h.logWriteError(viewerID, err)
			return
		}
		if _, err := rw.Write(f.Bytes); err != nil {
			h.logWriteError(viewerID, err)
			return
		}
		if _, err := rw.Write([]byte("\r\n")); err != nil {
			h.logWriteError(viewerID, err)
			return
		}
		if err := rw.Flush(); err != nil {
			h.logWriteError(viewerID, err)
			return
		}
	}
}

func (h *Handler) logWriteError(viewerID string, err error) {
	h.logger.Info("viewer disconnected", zap.String("viewer", viewerID), zap.Error(err))
}
