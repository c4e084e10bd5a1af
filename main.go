package main

import "github.com/dailydev/searchstream/cmd"

func main() {
	cmd.Execute()
}
