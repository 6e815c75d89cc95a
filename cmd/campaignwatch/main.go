package main

import "campaign-alerts/internal/cli"

func main() {
	cli.Execute()
}
