package main

import "lira-rate-alerts/internal/cli"

func main() {
	cli.Execute()
}
