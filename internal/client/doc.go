// Package client is the HTTP client the CLI uses to talk to a running
// dotsocr daemon. Error bodies of the form {"error": "..."} are surfaced as
// *StatusError.
package client
