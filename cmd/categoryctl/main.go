package main

import (
	_ "github.com/joho/godotenv/autoload"

	"github.com/ammiranda/category_service/cmd/categoryctl/cmd"
)

func main() {
	cmd.Execute()
}
