package main

import "github.com/klytics/vbadoc/cmd"

func main() {
	cmd.Execute()
}
