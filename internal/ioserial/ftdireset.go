package ioserial

import (
	"errors"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/ftdi"
)

// resetFTDILine and bootloaderSelectLine name the two FTDI CBUS pins ConBee I
// wires to the radio MCU's reset and bootloader-select inputs.
const (
	resetFTDILine        = "C0"
	bootloaderSelectLine = "C1"
)

// ResetFTDI implements engine.Platform: it bit-bangs ConBee I's FTDI chip to
// pulse the radio MCU's reset line while holding bootloader-select active,
// dropping the device straight into its bootloader the way the hardware
// reset button would.
func (t *Transport) ResetFTDI() error {
	hostInitOnce.Do(func() {
		_, hostInitErr = host.Init()
	})
	if hostInitErr != nil {
		return hostInitErr
	}

	devices := ftdi.All()
	if len(devices) == 0 {
		return errors.New("ioserial: no FTDI device found")
	}

	dev := devices[0]
	header := dev.Header()

	var reset, btlSelect gpio.PinIO
	for _, pin := range header {
		switch pin.Name() {
		case resetFTDILine:
			reset = pin
		case bootloaderSelectLine:
			btlSelect = pin
		}
	}
	if reset == nil || btlSelect == nil {
		return errors.New("ioserial: FTDI device has no reset/bootloader-select pins")
	}

	if err := btlSelect.Out(gpio.Low); err != nil {
		return err
	}
	if err := reset.Out(gpio.Low); err != nil {
		return err
	}
	time.Sleep(50 * time.Millisecond)
	if err := reset.Out(gpio.High); err != nil {
		return err
	}
	time.Sleep(50 * time.Millisecond)
	return btlSelect.Out(gpio.High)
}
