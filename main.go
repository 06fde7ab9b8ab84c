package main

import "github.com/gfz-dataservices/grobi/cmd"

func main() {
	cmd.Execute()
}
