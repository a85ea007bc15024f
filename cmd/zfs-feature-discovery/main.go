package main

import (
	"github.com/danielkza/zfs-feature-discovery/pkg/cli"
)

func main() {
	cli.Execute()
}
