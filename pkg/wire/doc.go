// Package wire defines the CBOR messages of the remote register protocol.
//
// A client sends a Request to read or write consecutive 32-bit words; the
// server answers with a Response carrying the same message ID. All maps use
// integer keys:
//
//	Request  {1: messageId, 2: operation, 3: address, 4: count, 5: values}
//	Response {1: messageId, 2: status, 3: values, 4: message}
//
// Messages are carried in length-prefixed frames (see package transport).
package wire
