package source

/*
#cgo CFLAGS:   -I${SRCDIR}/../../include
#cgo LDFLAGS:  -L${SRCDIR}/../../lib -l:libbambu_tunnel.a
#include <stdlib.h>
#include "bambu_tunnel.h"

static int stream_width(Bambu_StreamInfo *info) { return info->format.video.width; }
static int stream_height(Bambu_StreamInfo *info) { return info->format.video.height; }
static int stream_frame_rate(Bambu_StreamInfo *info) { return info->format.video.frame_rate; }
*/
import "C"

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unsafe"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"
)

const (
	startStreamRetryInterval = 100 * time.Millisecond
	readSampleRetryInterval  = 50 * time.Millisecond
)

// LiveSource talks to a real printer over the vendor LAN-mode tunnel. It
// wraps the opaque Bambu_Tunnel handle the same way the turbojpeg bindings
// wrap a tjhandle: a thin cgo shim around an opaque C pointer, with Go-level
// retry and cancellation layered on top of the C library's synchronous,
// would-block-returning calls.
type LiveSource struct {
	logger  *zap.Logger
	url     string
	mu      sync.Mutex
	tunnel  C.Bambu_Tunnel
	width   int
	height  int
	frameFS float64
	maxSize int
}

// NewLiveSource builds a source bound to one printer. ip, device and
// passcode come straight from the CLI arguments; no part of the tunnel URL
// is ever read from configuration.
func NewLiveSource(logger *zap.Logger, ip, device, passcode string) *LiveSource {
	return &LiveSource{
		logger:  logger,
		url:     tunnelURL(ip, device, passcode),
		maxSize: DefaultMaxFrameSize,
	}
}

func cerr(label string, rc C.int) error {
	switch rc {
	case C.Bambu_success:
		return nil
	case C.Bambu_stream_end:
		return ErrEndOfStream
	default:
		msg := C.GoString(C.Bambu_GetLastErrorMsg())
		return fmt.Errorf("%s: %w: %s", label, ErrProtocol, msg)
	}
}

func (s *LiveSource) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tunnel != nil {
		return nil
	}

	cpath := C.CString(s.url)
	defer C.free(unsafe.Pointer(cpath))

	var tunnel C.Bambu_Tunnel
	if rc := C.Bambu_Create(&tunnel, cpath); rc != C.Bambu_success {
		return fmt.Errorf("create tunnel: %w", ErrUnreachable)
	}
	if rc := C.Bambu_Open(tunnel); rc != C.Bambu_success {
		C.Bambu_Destroy(tunnel)
		return fmt.Errorf("open tunnel: %w", ErrAuth)
	}

	bo := backoff.NewConstantBackOff(startStreamRetryInterval)
	err := backoff.Retry(func() error {
		rc := C.Bambu_StartStream(tunnel, 1)
		switch rc {
		case C.Bambu_success:
			return nil
		case C.Bambu_would_block:
			return fmt.Errorf("stream starting")
		default:
			return backoff.Permanent(cerr("start stream", rc))
		}
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		C.Bambu_Close(tunnel)
		C.Bambu_Destroy(tunnel)
		return err
	}

	count := int(C.Bambu_GetStreamCount(tunnel))
	var info C.Bambu_StreamInfo
	found := false
	for i := 0; i < count; i++ {
		if rc := C.Bambu_GetStreamInfo(tunnel, C.int(i), &info); rc != C.Bambu_success {
			continue
		}
		if info._type == C.VIDE && info.sub_type == C.MJPG {
			found = true
			break
		}
	}
	if !found || count != 1 {
		C.Bambu_Close(tunnel)
		C.Bambu_Destroy(tunnel)
		return fmt.Errorf("expected exactly one MJPEG video stream, got %d streams: %w", count, ErrUnexpectedStream)
	}

	s.tunnel = tunnel
	s.width = int(C.stream_width(&info))
	s.height = int(C.stream_height(&info))
	if fr := int(C.stream_frame_rate(&info)); fr > 0 {
		s.frameFS = float64(fr)
	} else {
		s.frameFS = 1
	}
	if int(info.max_frame_size) > 0 {
		s.maxSize = int(info.max_frame_size)
	}
	s.logger.Info("connected to printer camera",
		zap.Int("width", s.width), zap.Int("height", s.height))
	return nil
}

func (s *LiveSource) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tunnel == nil {
		return
	}
	C.Bambu_Close(s.tunnel)
	C.Bambu_Destroy(s.tunnel)
	s.tunnel = nil
}

func (s *LiveSource) NextFrame(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	tunnel := s.tunnel
	s.mu.Unlock()
	if tunnel == nil {
		return nil, fmt.Errorf("next frame: %w", ErrUnreachable)
	}

	var sample C.Bambu_Sample
	bo := backoff.NewConstantBackOff(readSampleRetryInterval)
	err := backoff.Retry(func() error {
		rc := C.Bambu_ReadSample(tunnel, &sample)
		switch rc {
		case C.Bambu_success:
			return nil
		case C.Bambu_would_block:
			return fmt.Errorf("sample not ready")
		default:
			return backoff.Permanent(cerr("read sample", rc))
		}
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return nil, err
	}

	if int(sample.size) > s.maxSize {
		return nil, fmt.Errorf("sample of %d bytes exceeds max frame size %d: %w",
			int(sample.size), s.maxSize, ErrProtocol)
	}
	buf := C.GoBytes(unsafe.Pointer(sample.buffer), sample.size)
	return buf, nil
}

func (s *LiveSource) FrameRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameFS
}

func (s *LiveSource) Dimensions() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

func (s *LiveSource) MaxFrameSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxSize
}
