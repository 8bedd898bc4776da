// Package bus defines the register transport used by hardware modules.
//
// A Client moves raw 32-bit words between the host and the device. Addresses
// are byte addresses; consecutive words are WordSize bytes apart, so
// Reads(addr, 3) returns the words at addr, addr+4 and addr+8.
//
// The package also provides Memory, a simulated register file used by the
// reference tools and by tests.
//
// Any failure reported by a Client is wrapped in a TransportError. Callers do
// not retry; a timeout or connection loss surfaces as a failed read or write.
package bus
