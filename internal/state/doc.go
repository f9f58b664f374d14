// Package state holds the mutable sorting session settings and counters
// and persists them as a small JSON file. Every mutation is written back
// synchronously so a crash or restart resumes the prior session.
package state
