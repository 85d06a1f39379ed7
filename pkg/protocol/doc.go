// Package protocol implements the KIV/UPS card-game wire format.
//
// The format is asymmetric. Client frames are length-prefixed:
//
//	<12-char opcode><4-digit len><field>[<4-digit len><field>]...\n
//
// where the opcode is the magic "KIVUPS" followed by a 6-character action
// tag. Server messages reuse the magic but carry a free-form event name and
// '|'-delimited fields:
//
//	KIVUPSCARD_PLAYED_VALID|10_of_heart\n
//
// Encode and Decode handle the first form, ParseEvent the second. Neither
// performs I/O; line termination belongs to the transport.
package protocol
