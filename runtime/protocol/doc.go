// Package protocol defines the JSON envelopes exchanged with the interview
// backend and routes inbound envelopes to their handlers.
//
// Every envelope carries a string "type" discriminator. Inbound envelopes are
// parsed into one concrete Go type per discriminator; anything the client does
// not know becomes Unrecognized instead of an error. Outbound envelopes
// marshal with "type" as their first field.
package protocol
