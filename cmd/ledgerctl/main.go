package main

import "github.com/mmynk/tripledger/internal/cli"

func main() {
	cli.Execute()
}
