// Package capture produces one card frame image per cycle by shelling out
// to a configured grab command, and watches udev for the camera appearing
// or disappearing mid-session.
package capture
