// Command harness is the C4 client: a thin cobra CLI that talks to the
// harnessd daemon over a unix socket.
package main

import (
	"os"

	"github.com/speckit/harness/cmd/harness/cli"
)

func main() {
	os.Exit(cli.Execute())
}
