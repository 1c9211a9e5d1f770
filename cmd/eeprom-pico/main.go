//go:build rp2040 || rp2350

package main

import (
	"context"
	"machine"
	"time"

	"github.com/jangala-dev/tinygo-uartx/uartx"

	"eeprom-go/bus"
	"eeprom-go/drivers/eeprom"
	"eeprom-go/drivers/twi"
	"eeprom-go/services/console"
	eepromsvc "eeprom-go/services/eeprom"
)

// Pico defaults: I2C0 on GP4/GP5, console on UART0 GP0/GP1.
const (
	pinSDA  = 4
	pinSCL  = 5
	pinTX   = 0
	pinRX   = 1
	baud    = 115200
	busFreq = twi.Freq400K
)

// uartReader adapts uartx to io.Reader for the console.
type uartReader struct {
	ctx context.Context
	u   *uartx.UART
}

func (r uartReader) Read(p []byte) (int, error) { return r.u.RecvSomeContext(r.ctx, p) }

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("[main] boot")
	ctx := context.Background()

	dev := eeprom.New(twi.NewMachine(machine.I2C0))
	// 24C256 on the board: two-byte memory address, high byte first.
	dev.MustConfigure(eeprom.Config{
		Address:      eeprom.Address,
		AddressOrder: eeprom.HighFirst,
		Bus: twi.Config{
			SCL:          pinSCL,
			SDA:          pinSDA,
			Frequency:    busFreq,
			IRQPriority:  twi.PriorityHigh,
			ClearBusInit: true,
		},
	})
	mem, err := eeprom.NewMemory(dev, eeprom.Conf24C256)
	if err != nil {
		panic(err)
	}
	println("[main] eeprom ready, bytes:", mem.Size())

	b := bus.NewBus(4)
	eepromsvc.New(b.NewConnection("eeprom"), dev, mem).Start(ctx)

	u := uartx.UART0
	if err := u.Configure(uartx.UARTConfig{
		BaudRate: baud,
		TX:       machine.Pin(pinTX),
		RX:       machine.Pin(pinRX),
	}); err != nil {
		println("[main] uart0 configure failed:", err.Error())
	}
	con := console.New(b.NewConnection("console"), u)
	for {
		if err := con.Run(ctx, uartReader{ctx: ctx, u: u}); err != nil {
			println("[main] console:", err.Error())
		}
		time.Sleep(100 * time.Millisecond)
	}
}
