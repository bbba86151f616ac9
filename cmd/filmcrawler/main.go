package main

import "github.com/JakeFAU/grossing-films-crawler/cmd"

func main() {
	cmd.Execute()
}
