//go:build !rp2040 && !rp2350

package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"eeprom-go/bus"
	"eeprom-go/drivers/eeprom"
	"eeprom-go/drivers/eeprom/sim"
	"eeprom-go/drivers/twi"
	"eeprom-go/services/console"
	eepromsvc "eeprom-go/services/eeprom"
)

// target is an opened device with its backend resources.
type target struct {
	dev   *eeprom.Device
	mem   *eeprom.Memory
	dirty bool

	periph *twi.I2C
	chip   *sim.Chip // sim backend only
	image  string
	closer io.Closer // linux backend only
}

func open(s *settings) (*target, error) {
	t := &target{}
	switch s.Backend {
	case "sim":
		cc := sim.ChipConfig{
			Address:   s.Device.Address,
			Size:      s.Memory.Size,
			PageSize:  s.Memory.PageSize,
			HighFirst: s.Device.AddressOrder == eeprom.HighFirst,
		}
		if cc.Address == 0 {
			cc.Address = eeprom.Address
		}
		t.chip = sim.NewChip(cc)
		t.image = s.Image
		img, err := os.ReadFile(s.Image)
		switch {
		case err == nil:
			n := t.chip.Load(img)
			log.WithFields(log.Fields{"image": s.Image, "bytes": n}).Debug("image loaded")
		case os.IsNotExist(err):
			log.WithField("image", s.Image).Debug("no image, starting erased")
		default:
			return nil, errors.Wrap(err, "load image")
		}
		t.periph = twi.NewI2C(t.chip)
		// the chip completes its write cycle instantly
		s.Memory.WriteDelay = 0

	case "linux":
		if _, err := host.Init(); err != nil {
			return nil, errors.Wrap(err, "host init")
		}
		b, err := i2creg.Open(s.BusName)
		if err != nil {
			return nil, errors.Wrapf(err, "open i2c bus %q", s.BusName)
		}
		log.WithField("bus", b.String()).Debug("i2c bus opened")
		t.closer = b
		t.periph = twi.NewI2C(b)

	default:
		return nil, errors.Errorf("unknown backend %q", s.Backend)
	}

	t.dev = eeprom.New(t.periph)
	if err := t.dev.Configure(s.Device); err != nil {
		t.Close()
		return nil, errors.Wrap(err, "configure eeprom")
	}
	mem, err := eeprom.NewMemory(t.dev, s.Memory)
	if err != nil {
		t.Close()
		return nil, errors.Wrap(err, "memory geometry")
	}
	t.mem = mem
	log.WithFields(log.Fields{
		"backend": s.Backend,
		"part":    s.Part,
		"address": s.Device.Address,
	}).Debug("eeprom ready")
	return t, nil
}

// shell runs the bus console against the device until in is exhausted.
func (t *target) shell(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	b := bus.NewBus(8)
	eepromsvc.New(b.NewConnection("eeprom"), t.dev, t.mem).Start(ctx)
	con := console.New(b.NewConnection("console"), out)
	con.Timeout = 5 * time.Second
	return con.Run(ctx, in)
}

// Close releases the bus and, for the sim backend, saves the image if the
// chip was written.
func (t *target) Close() error {
	if t.periph != nil {
		t.periph.Close()
	}
	if t.closer != nil {
		return t.closer.Close()
	}
	if t.chip != nil && t.dirty {
		if err := os.WriteFile(t.image, t.chip.Bytes(), 0o644); err != nil {
			return errors.Wrap(err, "save image")
		}
		log.WithField("image", t.image).Debug("image saved")
	}
	return nil
}
