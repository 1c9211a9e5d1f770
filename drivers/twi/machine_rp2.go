//go:build rp2040 || rp2350

package twi

import (
	"machine"
	"time"
)

// Machine drives an on-chip I²C controller. Unlike NewI2C it also owns pin
// muxing and clock setup, which happen in Init.
type Machine struct {
	*I2C
	hw *machine.I2C
}

func NewMachine(hw *machine.I2C) *Machine {
	return &Machine{I2C: NewI2C(hw), hw: hw}
}

// Init configures pins and bus frequency from cfg. IRQPriority is accepted
// for compatibility; the RP2 controller is driven from the bus worker.
func (m *Machine) Init(cfg Config, h Handler) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	sda := machine.Pin(cfg.SDA)
	scl := machine.Pin(cfg.SCL)
	if cfg.ClearBusInit {
		clearBus(scl, sda)
	}
	sda.Configure(machine.PinConfig{Mode: machine.PinI2C})
	scl.Configure(machine.PinConfig{Mode: machine.PinI2C})
	if err := m.hw.Configure(machine.I2CConfig{
		SCL:       scl,
		SDA:       sda,
		Frequency: cfg.Frequency,
	}); err != nil {
		return err
	}
	return m.I2C.Init(cfg, h)
}

// clearBus clocks SCL until a slave holding SDA low releases it.
func clearBus(scl, sda machine.Pin) {
	sda.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	scl.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for i := 0; i < 9 && !sda.Get(); i++ {
		scl.Low()
		time.Sleep(5 * time.Microsecond)
		scl.High()
		time.Sleep(5 * time.Microsecond)
	}
}
