//go:build !rp2040 && !rp2350

package main

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"eeprom-go/drivers/eeprom"
)

// settings is the resolved tool configuration.
//
//	[core]
//	debug = false
//
//	[backend]
//	kind  = "sim"            # or "linux"
//	image = "eeprom.bin"     # sim only; created on first save
//	bus   = ""               # linux only; "" picks the first i2c bus
//
//	[eeprom]
//	part    = "24c02"        # 24c02, 24c16, 24c256
//	address = 80             # 7-bit, 0x50
//	order   = "low"          # "high" for 24C32 and larger
//	timeout = "50ms"
type settings struct {
	Debug   bool
	Backend string
	Image   string
	BusName string

	Part    string
	Device  eeprom.Config
	Memory  eeprom.MemoryConfig
	Timeout time.Duration
}

func defaults(v *viper.Viper) {
	v.SetDefault("core.debug", false)
	v.SetDefault("backend.kind", "sim")
	v.SetDefault("backend.image", "eeprom.bin")
	v.SetDefault("backend.bus", "")
	v.SetDefault("eeprom.part", "24c02")
	v.SetDefault("eeprom.address", eeprom.Address)
	v.SetDefault("eeprom.order", "low")
	v.SetDefault("eeprom.timeout", "50ms")
}

// loadSettings reads file if it exists; a missing file leaves the defaults.
func loadSettings(file string) (*settings, error) {
	v := viper.New()
	defaults(v)
	v.SetConfigType("toml")
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !isNotExist(err) {
			return nil, errors.Wrapf(err, "config %s", file)
		}
	}

	s := &settings{
		Debug:   v.GetBool("core.debug"),
		Backend: v.GetString("backend.kind"),
		Image:   v.GetString("backend.image"),
		BusName: v.GetString("backend.bus"),
		Part:    strings.ToLower(v.GetString("eeprom.part")),
		Timeout: v.GetDuration("eeprom.timeout"),
	}

	switch s.Part {
	case "24c02":
		s.Memory = eeprom.Conf24C02
	case "24c16":
		s.Memory = eeprom.Conf24C16
	case "24c256":
		s.Memory = eeprom.Conf24C256
	default:
		return nil, errors.Errorf("unknown part %q", s.Part)
	}

	s.Device = eeprom.Config{
		Address: uint16(v.GetInt("eeprom.address")),
		Timeout: s.Timeout,
	}
	switch strings.ToLower(v.GetString("eeprom.order")) {
	case "low":
		s.Device.AddressOrder = eeprom.LowFirst
	case "high":
		s.Device.AddressOrder = eeprom.HighFirst
	default:
		return nil, errors.Errorf("unknown address order %q", v.GetString("eeprom.order"))
	}
	return s, nil
}

func isNotExist(err error) bool { return os.IsNotExist(errors.Cause(err)) }
