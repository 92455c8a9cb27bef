// Command bambucam-rtp republishes a Bambu Lab printer's LAN-mode camera
// feed as RTP/MPEG-TS, the alternative egress transport from §4.5. RTP is a
// connectionless, single-client push: there is no handshake to gate the
// upstream tunnel by, so unlike cmd/bambucam this variant holds the tunnel
// open for its entire run, the same way the original's separate
// server_ffmpeg_rtp.c main variant did.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.uber.org/zap"

	"bambucam/internal/frame"
	"bambucam/internal/lifecycle"
	"bambucam/internal/rtpmpeg"
	"bambucam/internal/source"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: bambucam-rtp <ip> <device> <passcode> <port>")
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

	egress, err := rtpmpeg.New(logger, slot, ctl, fmt.Sprintf("localhost:%d", port))
	if err != nil {
		logger.Fatal("failed to build rtp egress", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := egress.Start(ctx); err != nil {
		logger.Fatal("failed to start rtp egress", zap.Error(err))
	}

	logger.Info("pushing rtp/mpeg-ts", zap.Int("port", port))
	<-ctx.Done()
	logger.Info("shutting down")
	egress.Stop()
	ctl.Shutdown()
}
