package engine

// Bootloader V3 framed-protocol opcodes. The wire protocol also defines an
// id request (0x02), never sent here: the ASCII "ID" prompt elicits the id
// response from both bootloader dialects.
const (
	btlMagic            = 0x81
	btlIDResponse       = 0x82
	btlFWUpdateRequest  = 0x03
	btlFWUpdateResponse = 0x83
	btlFWDataRequest    = 0x04
	btlFWDataResponse   = 0x84
)

// Bootloader V1 constants.
const (
	v1PageSize = 256
)

// paramWatchdogTimeout is the in-band write-parameter id used by the UART
// reset sequence to set a 2 second watchdog that reboots the device into its
// bootloader.
const paramWatchdogTimeout = 0x26
