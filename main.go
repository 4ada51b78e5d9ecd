/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "example.com/StealthStack/cmd"

func main() {
	cmd.Execute()
}
