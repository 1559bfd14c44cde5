// Package sf40 implements the serial command protocol spoken by the
// LightWare SF40/c scanning lidar.
//
// The device frames every message, in both directions, as
//
//	[0xAA][headerLo][headerHi][commandID][payload...][crcLo][crcHi]
//
// where the 16-bit header packs a read/write flag and a 10-bit payload
// length, and the trailing CRC is a device-specific 16-bit checksum
// (see Checksum). Command responses and unsolicited distance telemetry
// share this format and are told apart only by command ID.
//
// A Session owns exclusive access to one serial port and drives one
// request/response transaction at a time. Unsolicited distance frames
// are decoded by ReadStreamFrame, or continuously by a StreamPump.
package sf40
