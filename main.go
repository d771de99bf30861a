package main

import "github.com/mselser95/polymarket-insider/cmd"

func main() {
	cmd.Execute()
}
