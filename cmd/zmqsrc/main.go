package main

import "github.com/zeromq/zmqsrc/cmd/zmqsrc/internal"

func main() {
	internal.Execute()
}
