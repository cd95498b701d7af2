package main

import (
	"github.com/mchmarny/strshort/pkg/cli"
)

func main() {
	cli.Execute()
}
