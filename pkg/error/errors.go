package errors

import (
	"errors"
	"fmt"
)

var (
	// Host client errors
	ErrDialHost      = errors.New("failed to open host control channel")
	ErrDeclare       = errors.New("failed to declare host port")
	ErrDuplicateHost = errors.New("host endpoint already registered")
	ErrInstruction   = errors.New("failed to read punch instruction")

	// Join client errors
	ErrJoin            = errors.New("failed to send join request")
	ErrBindingUDP      = errors.New("failed to bind UDP")
	ErrPubAddrRetrieve = errors.New("failed to get public address")

	// WireGuard errors
	ErrWireGuardPort = errors.New("failed to read wireguard listen port")
)

func Wrap(step error, err error) error {
	return fmt.Errorf("%w: %w", step, err)
}
