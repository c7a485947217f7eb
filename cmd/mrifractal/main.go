package main

// version is reported by --version and the health endpoint
var version = "1.0.0"

func main() {
	Execute()
}
