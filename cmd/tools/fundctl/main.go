// cmd/tools/fundctl/main.go
package main

func main() {
	Execute()
}
