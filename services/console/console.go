// Package console is a line-oriented command shell for the eeprom service.
//
//	rb ADDR            read one byte
//	wb ADDR VAL        write one byte
//	rp ADDR LEN        read LEN bytes from ADDR
//	rc LEN             read LEN bytes from the current address
//	wp ADDR B0 B1 ...  page write
//	ws ADDR "TEXT"     paged write of a string
//	dump ADDR LEN      hex dump
//
// Numbers accept 0x, 0o and 0b prefixes.
package console

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/google/shlex"

	"eeprom-go/bus"
	"eeprom-go/errcode"
	eepromsvc "eeprom-go/services/eeprom"
	"eeprom-go/types"
	"eeprom-go/x/conv"
)

const (
	prompt         = "> "
	defaultTimeout = 2 * time.Second
)

var ErrQuit = errors.New("console: quit")

type Console struct {
	conn    *bus.Connection
	out     io.Writer
	Timeout time.Duration // per request
}

func New(conn *bus.Connection, out io.Writer) *Console {
	return &Console{conn: conn, out: out, Timeout: defaultTimeout}
}

// Run reads commands from in until EOF, "quit" or ctx is done. Command
// errors are printed and do not stop the loop.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	c.write(prompt)
	for sc.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := c.Exec(ctx, sc.Text())
		if errors.Is(err, ErrQuit) {
			return nil
		}
		if err != nil {
			c.write("error: " + err.Error() + "\n")
		}
		c.write(prompt)
	}
	return sc.Err()
}

// Exec runs a single command line. Blank lines and # comments are no-ops.
func (c *Console) Exec(ctx context.Context, line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return errcode.InvalidParams
	}
	if len(args) == 0 {
		return nil
	}
	cmd, args := args[0], args[1:]
	switch cmd {
	case "help", "?":
		c.write(usage)
		return nil
	case "quit", "exit":
		return ErrQuit
	case "rb":
		return c.cmdRead(ctx, args, 1, 1, false, false)
	case "rp":
		return c.cmdRead(ctx, args, 2, -1, false, false)
	case "rc":
		return c.cmdRead(ctx, args, 1, -1, true, false)
	case "dump":
		return c.cmdRead(ctx, args, 2, -1, false, true)
	case "wb":
		if len(args) != 2 {
			return errcode.InvalidParams
		}
		return c.cmdWrite(ctx, args[0], args[1:])
	case "wp":
		if len(args) < 2 {
			return errcode.InvalidParams
		}
		return c.cmdWrite(ctx, args[0], args[1:])
	case "ws":
		if len(args) != 2 {
			return errcode.InvalidParams
		}
		addr, err := parseU16(args[0])
		if err != nil {
			return err
		}
		return c.store(ctx, types.EEPROMWrite{Addr: addr, Data: []byte(args[1]), Paged: true})
	}
	return errcode.UnknownCommand
}

const usage = `rb ADDR            read one byte
wb ADDR VAL        write one byte
rp ADDR LEN        read LEN bytes from ADDR
rc LEN             read LEN bytes from the current address
wp ADDR B0 B1 ...  page write
ws ADDR "TEXT"     paged write of a string
dump ADDR LEN      hex dump
help | quit
`

// cmdRead handles rb, rp, rc and dump. fixedLen < 0 takes LEN from the last
// argument.
func (c *Console) cmdRead(ctx context.Context, args []string, nargs, fixedLen int, current, dump bool) error {
	if len(args) != nargs {
		return errcode.InvalidParams
	}
	req := types.EEPROMRead{Len: fixedLen, Current: current}
	if !current {
		a, err := parseU16(args[0])
		if err != nil {
			return err
		}
		req.Addr = a
	}
	if fixedLen < 0 {
		n, err := parseU16(args[len(args)-1])
		if err != nil {
			return err
		}
		req.Len = int(n)
	}

	rep, err := c.request(ctx, eepromsvc.CtrlRead, req)
	if err != nil {
		return err
	}
	var out []byte
	switch {
	case dump:
		out = conv.AppendHexDump(nil, req.Addr, rep.Data)
	case len(rep.Data) == 1:
		out = append(conv.AppendHex8(append([]byte(nil), "0x"...), rep.Data[0]), '\n')
	default:
		for i, b := range rep.Data {
			if i > 0 {
				out = append(out, ' ')
			}
			out = conv.AppendHex8(out, b)
		}
		out = append(out, '\n')
	}
	c.writeBytes(out)
	return nil
}

func (c *Console) cmdWrite(ctx context.Context, addrArg string, vals []string) error {
	addr, err := parseU16(addrArg)
	if err != nil {
		return err
	}
	data := make([]byte, 0, len(vals))
	for _, v := range vals {
		b, err := strconv.ParseUint(v, 0, 8)
		if err != nil {
			return errcode.InvalidParams
		}
		data = append(data, byte(b))
	}
	return c.store(ctx, types.EEPROMWrite{Addr: addr, Data: data})
}

func (c *Console) store(ctx context.Context, req types.EEPROMWrite) error {
	rep, err := c.request(ctx, eepromsvc.CtrlWrite, req)
	if err != nil {
		return err
	}
	c.write("ok " + strconv.Itoa(rep.N) + "\n")
	return nil
}

func (c *Console) request(ctx context.Context, method string, payload any) (types.EEPROMReply, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()
	msg, err := c.conn.Request(ctx, eepromsvc.TopicControl(method), payload)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return types.EEPROMReply{}, &errcode.E{C: errcode.Timeout, Op: method, Err: err}
		}
		return types.EEPROMReply{}, errcode.Wrap(method, err)
	}
	rep, ok := msg.Payload.(types.EEPROMReply)
	if !ok {
		return types.EEPROMReply{}, &errcode.E{C: errcode.InvalidPayload, Op: method}
	}
	if !rep.OK {
		return rep, &errcode.E{C: errcode.Code(rep.Error), Op: method}
	}
	return rep, nil
}

func parseU16(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, errcode.InvalidParams
	}
	return uint16(v), nil
}

func (c *Console) write(s string)      { _, _ = io.WriteString(c.out, s) }
func (c *Console) writeBytes(b []byte) { _, _ = c.out.Write(b) }
