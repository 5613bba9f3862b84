package main

import "github.com/YangQing-Lin/hooky-cli/cmd"

func main() {
	cmd.Execute()
}
