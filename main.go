// The main package for the socialrelay executable.
package main

import "github.com/JakeFAU/socialrelay/cmd"

func main() {
	cmd.Execute()
}
