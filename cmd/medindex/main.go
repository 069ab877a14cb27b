// Command medindex indexes clinical records into a vector store and
// searches them.
package main

import (
	"os"

	"github.com/custodia-labs/medindex/internal/adapters/driving/cli"
)

func main() {
	os.Exit(cli.Execute())
}
