package main

import "github.com/andresmejia3/headtrack/cmd"

func main() {
	cmd.Execute()
}
