// Package eeprom exposes an EEPROM device on the bus. All requests are
// handled by one goroutine, so bus clients never overlap on the chip.
package eeprom

import (
	"context"
	"time"

	"eeprom-go/bus"
	"eeprom-go/drivers/eeprom"
	"eeprom-go/errcode"
	"eeprom-go/types"
)

// Topic tokens.
const (
	TokEEPROM  = "eeprom"
	TokControl = "control"
	TokState   = "state"

	CtrlRead  = "read"
	CtrlWrite = "write"
)

var (
	TopicState = bus.T(TokEEPROM, TokState)
	topicCtrl  = bus.T(TokEEPROM, TokControl, bus.SingleWild)
)

// TopicControl returns the request topic for method.
func TopicControl(method string) bus.Topic { return bus.T(TokEEPROM, TokControl, method) }

type Service struct {
	conn *bus.Connection
	dev  *eeprom.Device
	mem  *eeprom.Memory // optional; enables long and paged transfers
}

// New binds a configured device. mem may be nil.
func New(conn *bus.Connection, dev *eeprom.Device, mem *eeprom.Memory) *Service {
	return &Service{conn: conn, dev: dev, mem: mem}
}

// Start runs the service loop in a goroutine until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	ready := make(chan struct{})
	go s.run(ctx, ready)
	<-ready
}

func (s *Service) run(ctx context.Context, ready chan<- struct{}) {
	ctrlSub := s.conn.Subscribe(topicCtrl)
	defer s.conn.Unsubscribe(ctrlSub)

	s.publishState("ready", "configured")
	close(ready)

	for {
		select {
		case <-ctx.Done():
			println("Info: eeprom service stopping")
			s.publishState("stopped", "context_cancelled")
			return
		case msg, ok := <-ctrlSub.Channel():
			if !ok {
				return
			}
			s.handle(msg)
		}
	}
}

func (s *Service) handle(msg *bus.Message) {
	if len(msg.Topic) != 3 {
		return
	}
	switch msg.Topic[2] {
	case CtrlRead:
		req, ok := msg.Payload.(types.EEPROMRead)
		if !ok {
			s.replyErr(msg, errcode.InvalidPayload)
			return
		}
		data, err := s.read(req)
		s.reply(msg, data, len(data), err)
	case CtrlWrite:
		req, ok := msg.Payload.(types.EEPROMWrite)
		if !ok {
			s.replyErr(msg, errcode.InvalidPayload)
			return
		}
		n, err := s.write(req)
		s.reply(msg, nil, n, err)
	default:
		s.replyErr(msg, errcode.UnknownCommand)
	}
}

func (s *Service) read(req types.EEPROMRead) ([]byte, error) {
	if req.Len <= 0 {
		return nil, errcode.InvalidParams
	}
	buf := make([]byte, req.Len)
	switch {
	case req.Current:
		if req.Len > eeprom.MaxTransfer {
			return nil, errcode.InvalidParams
		}
		return buf, s.dev.PageReadCurrent(buf)
	case req.Len == 1:
		v, err := s.dev.ByteReadRandom(req.Addr)
		buf[0] = v
		return buf, err
	case req.Len <= eeprom.MaxTransfer:
		return buf, s.dev.PageReadRandom(req.Addr, buf)
	case s.mem != nil:
		n, err := s.mem.ReadAt(buf, int64(req.Addr))
		return buf[:n], err
	}
	return nil, errcode.InvalidParams
}

func (s *Service) write(req types.EEPROMWrite) (int, error) {
	switch {
	case len(req.Data) == 0:
		return 0, errcode.InvalidParams
	case req.Paged:
		if s.mem == nil {
			return 0, errcode.Unsupported
		}
		return s.mem.WriteAt(req.Data, int64(req.Addr))
	case len(req.Data) == 1:
		return 1, s.dev.ByteWrite(req.Addr, req.Data[0])
	}
	if err := s.dev.PageWrite(req.Addr, req.Data); err != nil {
		return 0, err
	}
	return len(req.Data), nil
}

func (s *Service) reply(msg *bus.Message, data []byte, n int, err error) {
	if err != nil {
		s.conn.Reply(msg, types.EEPROMReply{Error: string(errcode.MapDriverErr(err)), Data: data, N: n})
		return
	}
	s.conn.Reply(msg, types.EEPROMReply{OK: true, Data: data, N: n})
}

func (s *Service) replyErr(msg *bus.Message, code errcode.Code) {
	s.conn.Reply(msg, types.EEPROMReply{Error: string(code)})
}

func (s *Service) publishState(level, status string) {
	size := 0
	if s.mem != nil {
		size = s.mem.Size()
	}
	s.conn.Publish(&bus.Message{
		Topic:    TopicState,
		Payload:  types.EEPROMState{Level: level, Status: status, Size: size, TS: time.Now().UnixNano()},
		Retained: true,
	})
}
