package main

import (
	"CineBot/cmd"
)

func main() {
	// Execute 出错时 cobra 会自行退出
	cmd.Execute()
}
