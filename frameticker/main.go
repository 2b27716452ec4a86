// Package main is the entry of the frameticker command.
package main

import "github.com/sarchlab/frameticker/frameticker/cmd"

func main() {
	cmd.Execute()
}
