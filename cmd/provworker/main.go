package main

import "github.com/ocr-provenance/workers/internal/cmd"

func main() {
	cmd.Execute()
}
