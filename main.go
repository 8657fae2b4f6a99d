package main

import "github.com/ecomtel/ussd-bridge/cmd"

func main() {
	cmd.Execute()
}
