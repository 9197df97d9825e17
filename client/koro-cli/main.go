package main

import "Koro/client/koro-cli/cmd"

func main() {
	cmd.Execute()
}
