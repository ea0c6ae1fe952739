package opsys

import "net"

// ListenConfig returns a net.ListenConfig that sets SO_REUSEADDR on the
// listening socket before bind, matching original_source/py-version's
// explicit setsockopt(SOL_SOCKET, SO_REUSEADDR, 1) call in its main().
func ListenConfig() net.ListenConfig {
	return net.ListenConfig{Control: reuseAddrControl}
}
