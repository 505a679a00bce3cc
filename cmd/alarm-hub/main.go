package main

import "github.com/oshokin/alarm-hub/cmd/alarm-hub/cmd"

func main() {
	cmd.Execute()
}
