package main

import "github.com/MeKo-Tech/wangtiles/internal/cmd"

func main() {
	cmd.Execute()
}
