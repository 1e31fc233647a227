// Package modbus implements the Modbus TCP and Modbus RTU polling
// connectors.
//
// One connector instance polls one gateway (TCP) or serial line (RTU)
// on a fixed interval. Each configured point mapping names a register
// kind, a start address, a normalized data type, and an optional
// byte-order policy for values spanning multiple 16-bit registers.
// Decoded raw values pass through the mapping's scale factor and offset
// before emission.
//
// Register kinds map onto the four Modbus read functions:
//
//	coil              → Read Coils (0x01), boolean
//	discrete-input    → Read Discrete Inputs (0x02), boolean
//	holding-register  → Read Holding Registers (0x03)
//	input-register    → Read Input Registers (0x04)
//
// A mapping that fails to read yields a Bad-quality point in the same
// batch as its healthy siblings; one dead register never suppresses the
// rest of the device.
//
// The wire client is github.com/goburrow/modbus; one request is in
// flight at a time per connector, matching the handler's transaction
// model.
package modbus
