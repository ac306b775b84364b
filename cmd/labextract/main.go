package main

import (
	"labextract/cmd/labextract/commands"
	"labextract/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
