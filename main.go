package main

import "tallyreport/internal/app"

func main() {
	app.Main()
}
