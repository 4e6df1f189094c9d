// Command tonari はソーシャルログイン(Google, Kakao, Naver)とbearer tokenを仲介する認証ゲートウェイ。
//
// 使い方:
//
//	tonari [serve|migrate|healthcheck]
package main

import (
	"log/slog"
	"os"

	"github.com/neon/tonari/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
