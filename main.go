package main

import "github.com/zodakzach/yt-comments-ai-analyzer/cmd"

func main() {
	cmd.Execute()
}
