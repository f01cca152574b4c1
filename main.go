package main

import "github.com/llehouerou/riptide/internal/cli"

func main() {
	cli.Execute()
}
