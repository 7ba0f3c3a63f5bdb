package main

import (
	"github.com/nkessler2000/sentiment-analysis/cmd/grsentiment/cmd"
)

func main() {
	cmd.Execute()
}
