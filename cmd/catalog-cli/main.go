package main

import "github.com/maltedev/storefront-scraper/cmd/catalog-cli/commands"

func main() {
	commands.Execute()
}
