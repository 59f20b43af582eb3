// Command yatube はブログサービスyatubeのWebサーバー、ワーカー、管理コマンドを起動する。
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/yatube/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "yatube: %v\n", err)
		os.Exit(1)
	}
}
