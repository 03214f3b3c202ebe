package main

import "github.com/cryptopairs/pairtrader/cmd"

func main() {
	cmd.Execute()
}
