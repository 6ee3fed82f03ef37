/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"github.com/ssargent/pvpobserver/cmd/pvpobs/cmd"
)

func main() {
	cmd.Execute()
}
