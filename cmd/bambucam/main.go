// Command bambucam republishes a Bambu Lab printer's LAN-mode camera feed
// as an MJPEG-over-HTTP stream. This is the primary transport variant: it
// owns the viewer-gated connect/disconnect to the printer's tunnel, and
// the upstream connection stays down until the first GET / arrives.
//
// The RTP/MPEG-TS egress is a separate composition root, cmd/bambucam-rtp,
// since it pushes to a fixed UDP destination with no viewer handshake to
// gate it by — wiring both into one process would mean the printer's
// tunnel is held open for the whole lifetime of the process, never idle.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"bambucam/internal/frame"
	"bambucam/internal/lifecycle"
	"bambucam/internal/mjpegserver"
	"bambucam/internal/source"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: bambucam <ip> <device> <passcode> <port>")
}

// route dispatches /metrics to the Prometheus handler and everything else
// to the MJPEG handler, which does its own GET-/-only routing. Deliberately
// not http.ServeMux: ServeMux 404s or redirects paths in ways the MJPEG
// wire contract doesn't want (§4.6 requires a bare 404 on every path and
// method other than GET /, decided entirely by the MJPEG handler itself).
func route(mjpeg, metrics http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			metrics.ServeHTTP(w, r)
			return
		}
		mjpeg.ServeHTTP(w, r)
	}
}

func main() {
	if len(os.Args) != 5 {
		usage()
		os.Exit(2)
	}
	ip, device, passcode := os.Args[1], os.Args[2], os.Args[3]
	port, err := strconv.Atoi(os.Args[4])
	if err != nil || port <= 0 || port > 65535 {
		usage()
		os.Exit(2)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	src := source.NewLiveSource(logger, ip, device, passcode)
	slot := frame.NewSlot(logger, source.DefaultMaxFrameSize)
	ctl := lifecycle.New(logger, src, slot)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: route(mjpegserver.New(logger, slot, ctl), promhttp.Handler()),
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		ctl.Shutdown()
		srv.Close()
	}()

	logger.Info("listening", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
