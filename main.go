package main

import (
	"github.com/KaramelBytes/dqguard-cli/cmd"
	"github.com/joho/godotenv"
)

func main() {
	// A .env in the working directory may carry DQGUARD_* settings; it is optional.
	_ = godotenv.Load()
	cmd.Execute()
}
