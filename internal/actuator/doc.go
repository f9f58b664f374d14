// Package actuator drives the bin gate servos. The servos hang off a
// PCA9685 controlled by an Arduino running Firmata over a serial port; one
// channel per bin, opened briefly to drop the card and then closed again.
package actuator
