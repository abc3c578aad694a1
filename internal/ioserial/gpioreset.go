package ioserial

import (
	"errors"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// resetGPIOName is the BCM GPIO line RaspBee I/II wire to the radio MCU's
// reset input on a Raspberry Pi header.
const resetGPIOName = "GPIO17"

var hostInitOnce sync.Once
var hostInitErr error

// ResetGPIO implements engine.Platform: it pulses the RaspBee reset line low
// long enough for the radio MCU to reboot into its bootloader.
func (t *Transport) ResetGPIO() error {
	hostInitOnce.Do(func() {
		_, hostInitErr = host.Init()
	})
	if hostInitErr != nil {
		return hostInitErr
	}

	pin := gpioreg.ByName(resetGPIOName)
	if pin == nil {
		return errors.New("ioserial: reset GPIO pin not found")
	}

	if err := pin.Out(gpio.Low); err != nil {
		return err
	}
	time.Sleep(50 * time.Millisecond)
	return pin.Out(gpio.High)
}
