package main

import "github.com/jobdesk/apiserver/cmd"

func main() {
	cmd.Execute()
}
