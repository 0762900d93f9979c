package main

import (
	"github.com/luma/countdown/cmd"
)

func main() {
	cmd.Execute()
}
