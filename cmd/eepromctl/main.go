//go:build !rp2040 && !rp2350

// Command eepromctl reads and writes a 24Cxx EEPROM from a host, either on a
// Linux i2c-dev bus or on a simulated chip backed by an image file.
package main

import (
	"context"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"eeprom-go/x/conv"
)

func main() {
	app := cli.NewApp()

	app.Name = "eepromctl"
	app.Version = "0.1.0"
	app.Usage = "24Cxx EEPROM tool"

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Value: "./eepromctl.toml",
			Usage: "load configuration from `FILE`",
		},
		cli.StringFlag{
			Name:  "backend, b",
			Usage: "override backend.kind (sim or linux)",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "enable debug logging",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:      "read",
			Usage:     "read bytes and print them in hex",
			ArgsUsage: "ADDR LEN",
			Action:    withDevice(cmdRead),
		},
		{
			Name:      "dump",
			Usage:     "hex dump a range (whole chip by default)",
			ArgsUsage: "[ADDR [LEN]]",
			Action:    withDevice(cmdDump),
		},
		{
			Name:      "write",
			Usage:     "write bytes, split on page boundaries",
			ArgsUsage: "ADDR BYTE...",
			Action:    withDevice(cmdWrite),
		},
		{
			Name:   "shell",
			Usage:  "interactive console on stdin",
			Action: withDevice(cmdShell),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// withDevice loads settings, opens the backend around action and closes it
// afterwards, saving the image for the sim backend.
func withDevice(action func(*cli.Context, *target) error) func(*cli.Context) error {
	return func(c *cli.Context) error {
		log.SetFormatter(&log.TextFormatter{DisableColors: true})

		s, err := loadSettings(c.GlobalString("config"))
		if err != nil {
			return err
		}
		if b := c.GlobalString("backend"); b != "" {
			s.Backend = b
		}
		if s.Debug || c.GlobalBool("debug") {
			log.SetLevel(log.DebugLevel)
		}

		t, err := open(s)
		if err != nil {
			return err
		}
		runErr := action(c, t)
		if err := t.Close(); err != nil && runErr == nil {
			runErr = err
		}
		return runErr
	}
}

func cmdRead(c *cli.Context, t *target) error {
	if c.NArg() != 2 {
		return cli.NewExitError("usage: read ADDR LEN", 2)
	}
	addr, err := parseUint(c.Args().Get(0), 16)
	if err != nil {
		return err
	}
	n, err := parseUint(c.Args().Get(1), 16)
	if err != nil {
		return err
	}
	data, err := readRange(t.mem, addr, n)
	if err != nil {
		return err
	}
	var out []byte
	for i, b := range data {
		if i > 0 {
			out = append(out, ' ')
		}
		out = conv.AppendHex8(out, b)
	}
	_, err = os.Stdout.Write(append(out, '\n'))
	return err
}

func cmdDump(c *cli.Context, t *target) error {
	addr, n := uint64(0), uint64(t.mem.Size())
	var err error
	if c.NArg() > 0 {
		if addr, err = parseUint(c.Args().Get(0), 16); err != nil {
			return err
		}
		if addr > n {
			return cli.NewExitError("address past end of chip", 2)
		}
		n -= addr
	}
	if c.NArg() > 1 {
		if n, err = parseUint(c.Args().Get(1), 16); err != nil {
			return err
		}
	}
	data, err := readRange(t.mem, addr, n)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(conv.AppendHexDump(nil, uint16(addr), data))
	return err
}

// readRange reads n bytes at addr. A range that runs past the end of the
// chip is cut short with a warning instead of failing.
func readRange(mem io.ReaderAt, addr, n uint64) ([]byte, error) {
	buf := make([]byte, n)
	got, err := mem.ReadAt(buf, int64(addr))
	if err == io.EOF && got > 0 {
		log.WithFields(log.Fields{"addr": addr, "want": n, "got": got}).Warn("short read, range runs past the end of the chip")
		err = nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %d bytes at 0x%04X", n, addr)
	}
	return buf[:got], nil
}

func cmdWrite(c *cli.Context, t *target) error {
	if c.NArg() < 2 {
		return cli.NewExitError("usage: write ADDR BYTE...", 2)
	}
	addr, err := parseUint(c.Args().Get(0), 16)
	if err != nil {
		return err
	}
	data := make([]byte, 0, c.NArg()-1)
	for _, a := range c.Args()[1:] {
		v, err := parseUint(a, 8)
		if err != nil {
			return err
		}
		data = append(data, byte(v))
	}
	n, err := t.mem.WriteAt(data, int64(addr))
	if err != nil {
		return errors.Wrapf(err, "write at 0x%04X after %d bytes", addr, n)
	}
	t.dirty = true
	log.WithFields(log.Fields{"addr": addr, "n": n}).Info("written")
	return nil
}

func cmdShell(_ *cli.Context, t *target) error {
	t.dirty = true
	return errors.Wrap(t.shell(context.Background(), os.Stdin, os.Stdout), "shell")
}

func parseUint(s string, bits int) (uint64, error) {
	v, err := strconv.ParseUint(s, 0, bits)
	if err != nil {
		return 0, errors.Wrapf(err, "bad number %q", s)
	}
	return v, nil
}
