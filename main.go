package main

import "dayly-backend/cmd"

func main() {
	cmd.Run()
}
