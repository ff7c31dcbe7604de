package main

import "github.com/oshokin/wake-me-up/cmd/wakemeup/cmd"

func main() {
	cmd.Execute()
}
