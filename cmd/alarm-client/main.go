package main

import "github.com/oshokin/alarm-hub/cmd/alarm-client/cmd"

func main() {
	cmd.Execute()
}
