package main

import "github.com/Lewin671/oneline-editor/internal/cmd"

func main() {
	cmd.Execute()
}
