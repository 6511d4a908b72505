// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"

	"github.com/xataio/tanker/cmd"
)

func main() {
	os.Exit(cmd.ExitCode(cmd.Execute()))
}
