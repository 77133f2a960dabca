// miraclectl is the CLI client for the miracled daemon.
package main

import "github.com/miraclecast/miraclecast/cmd/miraclectl/commands"

func main() {
	commands.Execute()
}
