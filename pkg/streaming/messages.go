// Package streaming defines the msgpack wire format for live match streams: a sequence of
// envelopes, each carrying a frame or a recorded event.
package streaming

import (
	"fmt"
	"io"
	"sync"

	"github.com/OCAP2/artillery/pkg/core"
	"github.com/vmihailenco/msgpack/v5"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartMatch  = "start_match"
	TypeEndMatch    = "end_match"
	TypeFrame       = "frame"
	TypeTurn        = "turn"
	TypeShot        = "shot"
	TypeImpact      = "impact"
	TypeMountEvent  = "mount_event"
	TypeCloseStream = "close"
)

// Envelope wraps every message on the stream.
type Envelope struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

// Encode wraps v in an envelope of the given type.
func Encode(typ string, v any) ([]byte, error) {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", typ, err)
	}
	return msgpack.Marshal(&Envelope{Type: typ, Payload: payload})
}

// Decode unwraps one envelope.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}

// Unmarshal decodes the envelope payload into v.
func (e Envelope) Unmarshal(v any) error {
	if err := msgpack.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

// Writer streams envelopes to w. Its Record methods match storage.Backend, so it can be
// fanned out next to a recorder. Safe for concurrent use.
type Writer struct {
	mu  sync.Mutex
	w   io.Writer
	enc *msgpack.Encoder
}

// NewWriter creates a stream writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, enc: msgpack.NewEncoder(w)}
}

func (s *Writer) write(typ string, v any) error {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", typ, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(&Envelope{Type: typ, Payload: payload})
}

// WriteFrame streams one render frame.
func (s *Writer) WriteFrame(f core.Frame) error { return s.write(TypeFrame, &f) }

func (s *Writer) Init() error { return nil }

// Close writes the close marker. The underlying writer stays open.
func (s *Writer) Close() error { return s.write(TypeCloseStream, nil) }

func (s *Writer) StartMatch(info *core.MatchInfo) error { return s.write(TypeStartMatch, info) }
func (s *Writer) EndMatch() error                       { return s.write(TypeEndMatch, nil) }
func (s *Writer) RecordTurn(e *core.TurnEvent) error    { return s.write(TypeTurn, e) }
func (s *Writer) RecordShot(e *core.ShotEvent) error    { return s.write(TypeShot, e) }
func (s *Writer) RecordImpact(e *core.ImpactEvent) error {
	return s.write(TypeImpact, e)
}
func (s *Writer) RecordMountEvent(e *core.MountEvent) error {
	return s.write(TypeMountEvent, e)
}

// Reader reads envelopes written by Writer.
type Reader struct {
	dec *msgpack.Decoder
}

// NewReader creates a stream reader on r.
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: msgpack.NewDecoder(r)}
}

// Next returns the next envelope, io.EOF at the end of the stream.
func (r *Reader) Next() (Envelope, error) {
	var env Envelope
	err := r.dec.Decode(&env)
	return env, err
}
