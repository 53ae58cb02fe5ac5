// Package protocol implements the mesh sync wire format.
//
// Every frame is a fixed 16-byte header followed by a command payload.
// All values are little-endian. Payloads are read structurally: the
// header's length field is advisory and never used to skip or bound a
// read.
//
//	Header:  u64 magic | u32 length | u32 command
//	String:  u32 length | bytes
//	Strings: u32 count  | String...
//	Array:   u32 count  | count * sizeof(T) bytes
package protocol
