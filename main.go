package main

import "github.com/andresmejia3/signspell/cmd"

func main() {
	cmd.Execute()
}
