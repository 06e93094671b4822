// Package cli implements the netpulse command tree:
//
//	netpulse serve      run the simulation behind the HTTP surface
//	netpulse simulate   step the simulation offline, events to stdout
package cli
