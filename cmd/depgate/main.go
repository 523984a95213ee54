// depgate — security gateway for package-manager operations.
// Every package name, path, argument and URL crosses a validator before
// any process is spawned or request is sent.
package main

import "github.com/ppiankov/depgate/internal/cli"

func main() {
	cli.Execute()
}
