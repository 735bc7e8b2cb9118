package main

import "github.com/kritgpt/matstat/cmd"

func main() {
	cmd.Execute()
}
