// Package gcf parses GCF firmware container files.
//
// A GCF file is a 14-byte little-endian header followed by a raw firmware
// payload. The firmware version is not stored in the header; it is encoded
// as a "0x"-prefixed hex literal somewhere in the file name
// (e.g. "deCONZ_ConBee_II_0x26720700.gcf").
package gcf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
)

const (
	// HeaderSize is the size in bytes of the GCF container header.
	HeaderSize = 14

	// Magic is the expected first 4 bytes of a GCF file, little-endian.
	Magic = 0xCAFEFEED

	// FWVersionPlatformMask isolates the platform byte of a firmware version.
	FWVersionPlatformMask = 0x0000FF00
	// FWVersionPlatformR21 identifies an R21 (RaspBee II / ConBee II class) platform.
	FWVersionPlatformR21 = 0x00000700
	// FWVersionPlatformAVR identifies an AVR (RaspBee I class) platform.
	FWVersionPlatformAVR = 0x00000500
)

var (
	// ErrTooShort is returned when the file is smaller than HeaderSize.
	ErrTooShort = errors.New("gcf: file too short for header")
	// ErrNoVersionInName is returned when no "0x..." literal is found in the file name.
	ErrNoVersionInName = errors.New("gcf: no firmware version in file name")
	// ErrBadMagic is returned when the header magic does not match Magic.
	ErrBadMagic = errors.New("gcf: bad magic")
	// ErrSizeMismatch is returned when the header's declared payload size
	// does not match the actual remaining file size.
	ErrSizeMismatch = errors.New("gcf: file size does not match header")
)

var versionPattern = regexp.MustCompile(`0[xX][0-9a-fA-F]+`)

// Header is the parsed 14-byte GCF container header.
type Header struct {
	FileType      uint8
	TargetAddress uint32
	PayloadSize   uint32
	// CRC is the Dallas/Maxim CRC-8 of the payload, forwarded to the device
	// opaquely; this package never recomputes it.
	CRC uint8
}

// File is a fully parsed GCF container: its header plus the raw payload and
// the firmware version extracted from its file name.
type File struct {
	Name      string
	Header    Header
	FWVersion uint32
	Payload   []byte
}

// Load reads path, parses its header and derives its firmware version from
// the file name.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gcf: read %s: %w", path, err)
	}
	name := filepath.Base(path)
	return Parse(name, data)
}

// Parse validates and parses the contents of a GCF file whose name is name.
func Parse(name string, data []byte) (*File, error) {
	if len(data) < HeaderSize {
		return nil, ErrTooShort
	}

	fwVersion, err := parseVersion(name)
	if err != nil {
		return nil, err
	}

	if magic := binary.LittleEndian.Uint32(data[0:4]); magic != Magic {
		return nil, ErrBadMagic
	}

	h := Header{
		FileType:      data[4],
		TargetAddress: binary.LittleEndian.Uint32(data[5:9]),
		PayloadSize:   binary.LittleEndian.Uint32(data[9:13]),
		CRC:           data[13],
	}

	payload := data[HeaderSize:]
	if int(h.PayloadSize) != len(payload) {
		return nil, ErrSizeMismatch
	}

	return &File{
		Name:      name,
		Header:    h,
		FWVersion: fwVersion,
		Payload:   payload,
	}, nil
}

// parseVersion extracts the "0x..." hex literal from a file name.
func parseVersion(name string) (uint32, error) {
	m := versionPattern.FindString(name)
	if m == "" {
		return 0, ErrNoVersionInName
	}
	v, err := strconv.ParseUint(m[2:], 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoVersionInName, err)
	}
	return uint32(v), nil
}

// IsR21Platform reports whether the firmware version targets the R21
// platform family (RaspBee II / ConBee II class MCUs).
func (f *File) IsR21Platform() bool {
	return f.FWVersion&FWVersionPlatformMask == FWVersionPlatformR21
}

// IsAVRPlatform reports whether the firmware version targets the AVR
// platform family (RaspBee I class MCUs).
func (f *File) IsAVRPlatform() bool {
	return f.FWVersion&FWVersionPlatformMask == FWVersionPlatformAVR
}
