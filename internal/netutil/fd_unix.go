//go:build linux || darwin

package netutil

import "golang.org/x/sys/unix"

// SetCloExec marks fd close-on-exec. net.Dial's own sockets
// are already close-on-exec by default on every platform Go supports, so
// this exists for the rarer case of a raw fd obtained outside the net
// package (e.g. handed to the reactor's poller directly).
func SetCloExec(fd int) error {
	unix.CloseOnExec(fd)
	return nil
}
