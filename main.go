package main

import (
	"github.com/neighborhoods/VarnishAdmin/cmd"
)

func main() {
	cmd.Execute()
}
