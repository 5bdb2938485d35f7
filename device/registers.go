package device

// Register offsets of the device's control surface. All registers are 32 bits
// wide and only decode 4-byte aligned, 4-byte accesses.
const (
	RegID           = 0x00
	RegLiveness     = 0x04
	RegScheduleNext = 0x08
	RegIRQStatus    = 0x24
	RegStart        = 0x30
	RegIRQRaise     = 0x60
	RegIRQAck       = 0x64
)

// InvalidRead is the sentinel returned for reads the device does not decode.
const InvalidRead uint32 = 0xffffffff

// MMIORead decodes a register read. Misaligned accesses, accesses that are
// not 4 bytes wide, and reads of unknown or write-only registers return the
// InvalidRead sentinel.
func (d *Device) MMIORead(offset uint64, size int) uint32 {
	if size != 4 || offset%4 != 0 {
		return InvalidRead
	}

	switch offset {
	case RegID:
		return IDValue
	case RegLiveness:
		return d.liveness
	case RegIRQStatus:
		return d.IRQStatus()
	default:
		return InvalidRead
	}
}

// MMIOWrite decodes a register write. Misaligned accesses, accesses that are
// not 4 bytes wide, and writes to unknown or read-only registers are ignored.
func (d *Device) MMIOWrite(offset uint64, value uint32, size int) {
	if size != 4 || offset%4 != 0 {
		return
	}

	switch offset {
	case RegStart, RegScheduleNext:
		d.Signal()
	case RegIRQRaise:
		// Reserved. Consumers cannot force a raise; only the worker
		// asserts causes.
	case RegIRQAck:
		d.acknowledge(value)
	}
}
