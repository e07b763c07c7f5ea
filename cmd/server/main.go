package main

import (
	"fmt"
	"os"

	"github.com/Mieluoxxx/siriusx-sms-validator/cmd/server/cli"
)

const (
	// Version 项目版本
	Version = "0.1.0"
	// AppName 应用名称
	AppName = "siriusx-sms-validator"
)

func main() {
	if err := cli.Execute(AppName, Version); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
